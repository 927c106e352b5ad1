// Package ocr defines the small engine contract the captcha solver recognizes
// text through, plus image preprocessing that makes tiny captcha renders
// readable for Tesseract.
package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Input is a single image submitted for recognition.
type Input struct {
	// ID is echoed back in the Result.
	ID string
	// Image is the encoded payload in Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// Languages are trained-data hints such as "eng".
	Languages []string
	// Metadata carries engine-specific variables such as Tesseract's
	// tessedit_pageseg_mode.
	Metadata map[string]string
}

// Result is the recognized text for one Input.
type Result struct {
	InputID   string
	PlainText string
	// Confidence is the mean word confidence in [0,1], zero when unknown.
	Confidence float64
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, in Input) (Result, error)

func (f EngineFunc) Name() string { return "func" }

func (f EngineFunc) Recognize(ctx context.Context, in Input) (Result, error) {
	return f(ctx, in)
}

// NewInput builds an Input from raw image bytes, sniffing PNG vs JPEG.
func NewInput(id string, image []byte, opts ...InputOption) Input {
	in := Input{
		ID:     id,
		Image:  image,
		Format: sniffFormat(image),
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

func sniffFormat(b []byte) ImageFormat {
	if len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF {
		return ImageFormatJPEG
	}
	return ImageFormatPNG
}
