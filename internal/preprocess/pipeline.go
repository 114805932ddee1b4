// Package preprocess implements the Preprocessor (component C3): a fixed
// order image-normalization pipeline (grayscale, denoise, adaptive
// threshold, skew correction, DPI uplift) built on the standard library's
// image package. No third-party image-processing library appears anywhere
// in the example corpus, so this is a deliberate, documented exception to
// the "prefer the ecosystem" rule (see DESIGN.md).
package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/kntaj/ocrflow/pkg/models"
)

// stage is one step of the fixed-order pipeline. Stages never reorder;
// Run always applies them grayscale -> denoise -> threshold -> skew -> dpi.
type stage func(img *image.Gray) *image.Gray

// Run applies every enabled stage of cfg, in fixed order, to imageData and
// returns the re-encoded JPEG bytes. PDF input passes through untouched —
// page rasterization is out of scope here (see Open Questions in DESIGN.md).
func Run(imageData []byte, contentType string, cfg models.PreprocessingConfig) ([]byte, error) {
	if contentType == "application/pdf" {
		return imageData, nil
	}

	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}

	// Grayscale conversion always happens during decode since every later
	// stage operates on *image.Gray; cfg.Grayscale is not read. Whether Run
	// is invoked at all is decided by the workflow engine from
	// EngineConfig.PreprocessingEnabled.
	gray := toGray(src)

	if cfg.NoiseReduction {
		gray = denoise(gray)
	}
	if cfg.AdaptiveThreshold {
		gray = adaptiveThreshold(gray)
	}
	if cfg.SkewCorrection {
		gray = deskew(gray)
	}
	if cfg.DPIOptimization {
		gray = upliftDPI(gray)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: 95}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// denoise applies a 3x3 median filter, the simplest noise-reduction kernel
// that doesn't blur text edges the way a mean filter would.
func denoise(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	var window [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := clamp(x+dx, b.Min.X, b.Max.X-1), clamp(y+dy, b.Min.Y, b.Max.Y-1)
					window[n] = src.GrayAt(px, py).Y
					n++
				}
			}
			dst.SetGray(x, y, color.Gray{Y: median9(window)})
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func median9(w [9]uint8) uint8 {
	sorted := w
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[4]
}

// adaptiveThreshold binarizes each pixel against the mean of its local
// neighborhood rather than a single global cutoff, so the result stays
// readable across a page with uneven scan lighting.
func adaptiveThreshold(src *image.Gray) *image.Gray {
	const window = 15
	const c = 10 // subtracted from the local mean before comparing
	b := src.Bounds()
	dst := image.NewGray(b)
	half := window / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum, n int
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					px, py := x+dx, y+dy
					if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
						continue
					}
					sum += int(src.GrayAt(px, py).Y)
					n++
				}
			}
			mean := sum / n
			if int(src.GrayAt(x, y).Y) < mean-c {
				dst.SetGray(x, y, color.Gray{Y: 0})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// deskew estimates the dominant text-line angle via a coarse projection-
// profile search and rotates the image to correct it. Angles within 0.5
// degrees of level are left untouched rather than introducing resampling
// blur for an imperceptible correction.
func deskew(src *image.Gray) *image.Gray {
	best := 0.0
	bestScore := -1.0
	for angle := -5.0; angle <= 5.0; angle += 0.5 {
		score := rowVarianceAtAngle(src, angle)
		if score > bestScore {
			bestScore = score
			best = angle
		}
	}
	if math.Abs(best) < 0.5 {
		return src
	}
	return rotate(src, best)
}

// rowVarianceAtAngle approximates the horizontal projection-profile
// variance a page would have if rotated by angle degrees: text lines
// produce sharp peaks in row ink-density when the rotation matches their
// true skew, so the angle with maximum variance is the best skew estimate.
func rowVarianceAtAngle(src *image.Gray, angle float64) float64 {
	b := src.Bounds()
	theta := angle * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	rows := make(map[int]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.GrayAt(x, y).Y < 128 {
				rotatedY := int(float64(x)*sin + float64(y)*cos)
				rows[rotatedY]++
			}
		}
	}
	var mean float64
	for _, v := range rows {
		mean += float64(v)
	}
	if len(rows) == 0 {
		return 0
	}
	mean /= float64(len(rows))
	var variance float64
	for _, v := range rows {
		d := float64(v) - mean
		variance += d * d
	}
	return variance / float64(len(rows))
}

func rotate(src *image.Gray, angleDeg float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	theta := angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcX := cos*(float64(x)-cx) + sin*(float64(y)-cy) + cx
			srcY := -sin*(float64(x)-cx) + cos*(float64(y)-cy) + cy
			sx, sy := int(srcX), int(srcY)
			if sx >= 0 && sx < w && sy >= 0 && sy < h {
				dst.SetGray(b.Min.X+x, b.Min.Y+y, src.GrayAt(b.Min.X+sx, b.Min.Y+sy))
			} else {
				dst.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// upliftDPI nearest-neighbor upsamples images below the 300dpi-equivalent
// size OCR engines expect, leaving already-adequate images untouched.
func upliftDPI(src *image.Gray) *image.Gray {
	const minDim = 1600
	b := src.Bounds()
	if b.Dx() >= minDim || b.Dy() >= minDim {
		return src
	}
	scale := 2
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < b.Dy()*scale; y++ {
		for x := 0; x < b.Dx()*scale; x++ {
			dst.SetGray(x, y, src.GrayAt(b.Min.X+x/scale, b.Min.Y+y/scale))
		}
	}
	return dst
}
