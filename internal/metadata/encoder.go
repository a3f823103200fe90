package metadata

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/jpegli"
)

// JPEGEncoder encodes pixels as JPEG at a quality in [1,100]
type JPEGEncoder interface {
	Name() string
	Encode(img image.Image, quality int) ([]byte, error)
}

const (
	EncoderStandard = "standard"
	EncoderJpegli   = "jpegli"
)

// NewJPEGEncoder returns the encoder registered under name; empty selects the standard encoder
func NewJPEGEncoder(name string) (JPEGEncoder, error) {
	switch strings.ToLower(name) {
	case "", EncoderStandard:
		return StandardJPEGEncoder{}, nil
	case EncoderJpegli:
		return JpegliEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown JPEG encoder %q (must be '%s' or '%s')",
			ErrInvalidArgument, name, EncoderStandard, EncoderJpegli)
	}
}

// StandardJPEGEncoder uses image/jpeg
type StandardJPEGEncoder struct{}

func (StandardJPEGEncoder) Name() string {
	return EncoderStandard
}

func (StandardJPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JpegliEncoder uses the jpegli encoder with 4:4:4 chroma
type JpegliEncoder struct{}

func (JpegliEncoder) Name() string {
	return EncoderJpegli
}

func (JpegliEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:           quality,
		ChromaSubsampling: image.YCbCrSubsampleRatio444,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
