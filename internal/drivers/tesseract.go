package drivers

import "github.com/kntaj/ocrflow/pkg/models"

// NewTesseractDriver wraps the tesseract CLI: `tesseract <image> stdout`.
// Local engines carry no metered cost.
func NewTesseractDriver() *localEngineDriver {
	return &localEngineDriver{
		kind:   models.EngineTesseract,
		binary: "tesseract",
		args: func(tmpImagePath string) []string {
			return []string{tmpImagePath, "stdout"}
		},
		cost: func(int) *int { zero := 0; return &zero },
	}
}
