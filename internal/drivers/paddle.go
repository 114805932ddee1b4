package drivers

import "github.com/kntaj/ocrflow/pkg/models"

// NewPaddleDriver wraps a `paddleocr` CLI wrapper script that takes an
// image path and prints recognized text to stdout, the same invocation
// shape as the Tesseract driver.
func NewPaddleDriver() *localEngineDriver {
	return &localEngineDriver{
		kind:   models.EnginePaddle,
		binary: "paddleocr",
		args: func(tmpImagePath string) []string {
			return []string{"--image_path", tmpImagePath, "--lang", "en"}
		},
		cost: func(int) *int { zero := 0; return &zero },
	}
}
