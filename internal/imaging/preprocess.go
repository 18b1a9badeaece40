package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
)

var (
	// ErrImageDecode means the source bytes are not a decodable image
	// (corrupt file or unsupported codec).
	ErrImageDecode = errors.New("imaging: cannot decode image")
	// ErrImageRead means the underlying byte stream could not be read.
	ErrImageRead = errors.New("imaging: cannot read image data")
)

// jpegQuality matches the original capture path's 0.95 encoder setting.
const jpegQuality = 95

// Normalize prepares a raw receipt image for OCR: decode, flatten onto an
// opaque white background of identical pixel dimensions, and re-encode as
// JPEG. Receipts photographed against transparency or dark alpha otherwise
// recognize poorly. There is no retry here; a failure is terminal for the
// attempt and the caller re-acquires.
func Normalize(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrImageRead)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := src.Bounds()
	flattened := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flattened, flattened.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flattened, flattened.Bounds(), src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flattened, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("imaging: encoding normalized image: %w", err)
	}

	return buf.Bytes(), nil
}
