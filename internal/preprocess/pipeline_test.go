package preprocess_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kntaj/ocrflow/internal/preprocess"
	"github.com/kntaj/ocrflow/pkg/models"
)

func checkerboardPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestRun_PDFPassesThroughUntouched(t *testing.T) {
	input := []byte("%PDF-1.4 fake content")
	out, err := preprocess.Run(input, "application/pdf", models.DefaultPreprocessingConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("Run() modified PDF input, want byte-identical passthrough")
	}
}

func TestRun_DisabledStagesSkip(t *testing.T) {
	input := checkerboardPNG(t, 32, 32)
	cfg := models.PreprocessingConfig{}
	out, err := preprocess.Run(input, "image/png", cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) == 0 {
		t.Error("Run() with all stages disabled still returned empty output")
	}
}

func TestRun_UpliftsDPIForSmallImages(t *testing.T) {
	input := checkerboardPNG(t, 10, 10)
	cfg := models.PreprocessingConfig{DPIOptimization: true}
	out, err := preprocess.Run(input, "image/png", cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() <= 10 || b.Dy() <= 10 {
		t.Errorf("Run() with DPIOptimization on a 10x10 image produced %dx%d, want upsampled", b.Dx(), b.Dy())
	}
}

func TestRun_FullPipelineProducesValidJPEG(t *testing.T) {
	input := checkerboardPNG(t, 64, 64)
	out, err := preprocess.Run(input, "image/png", models.DefaultPreprocessingConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, _, err := image.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("Run() output is not a decodable image: %v", err)
	}
}
