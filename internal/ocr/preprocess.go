package ocr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

// PreprocessOptions controls the cleanup applied to a captcha render before
// recognition.
type PreprocessOptions struct {
	// Scale multiplies both dimensions. Values <= 1 leave the size unchanged.
	Scale int
	// Contrast is a percentage in [-100, 100] passed to imaging.AdjustContrast.
	Contrast float64
	// Sharpen is the gaussian sigma for imaging.Sharpen; zero disables it.
	Sharpen float64
}

// DefaultPreprocessOptions returns settings tuned for small arithmetic captchas.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		Scale:    3,
		Contrast: 40,
		Sharpen:  1.0,
	}
}

// Preprocess decodes a PNG or JPEG image, converts it to grayscale, upscales
// it and boosts contrast, then re-encodes it as PNG.
func Preprocess(data []byte, opts PreprocessOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out := imaging.Grayscale(img)
	if opts.Scale > 1 {
		b := out.Bounds()
		out = imaging.Resize(out, b.Dx()*opts.Scale, b.Dy()*opts.Scale, imaging.Lanczos)
	}
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}
	if opts.Sharpen > 0 {
		out = imaging.Sharpen(out, opts.Sharpen)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// PreprocessingEngine runs Preprocess on every input before delegating.
type PreprocessingEngine struct {
	Next    Engine
	Options PreprocessOptions
}

// NewPreprocessingEngine wraps next with the default preprocessing.
func NewPreprocessingEngine(next Engine) *PreprocessingEngine {
	return &PreprocessingEngine{Next: next, Options: DefaultPreprocessOptions()}
}

func (e *PreprocessingEngine) Name() string { return "preprocess+" + e.Next.Name() }

// Recognize cleans the image and forwards it to the wrapped engine.
func (e *PreprocessingEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	img, err := Preprocess(in.Image, e.Options)
	if err != nil {
		return Result{}, err
	}
	in.Image = img
	in.Format = ImageFormatPNG
	return e.Next.Recognize(ctx, in)
}
