package fits

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Image is a two-dimensional pixel array in physical units, indexed
// [row][column]. One-dimensional extensions load as a single row.
type Image struct {
	Pixels [][]float64
}

// Rows returns the number of image rows.
func (im *Image) Rows() int { return len(im.Pixels) }

// Cols returns the number of image columns.
func (im *Image) Cols() int {
	if len(im.Pixels) == 0 {
		return 0
	}
	return len(im.Pixels[0])
}

// Image reads the named image extension into physical pixel values,
// applying BZERO and BSCALE. Raw WEAVE counts are stored as signed 16-bit
// integers with BZERO 32768, which this restores to the unsigned ADU scale.
func (f *File) Image(extname string) (*Image, error) {
	hdu, err := f.Extension(extname)
	if err != nil {
		return nil, err
	}
	return f.imageFromHDU(hdu)
}

func (f *File) imageFromHDU(hdu *HDU) (*Image, error) {
	h := hdu.Header
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return nil, err
	}
	var width, height int64
	switch naxis {
	case 1:
		width, err = h.Int("NAXIS1")
		height = 1
	case 2:
		width, err = h.Int("NAXIS1")
		if err == nil {
			height, err = h.Int("NAXIS2")
		}
	default:
		return nil, fmt.Errorf("fits: %s: image with NAXIS=%d not supported", f.path, naxis)
	}
	if err != nil {
		return nil, err
	}

	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return nil, err
	}
	bzero := h.FloatDefault("BZERO", 0)
	bscale := h.FloatDefault("BSCALE", 1)

	raw, err := f.readData(hdu)
	if err != nil {
		return nil, err
	}

	decode, bytesPer, err := pixelDecoder(bitpix)
	if err != nil {
		return nil, fmt.Errorf("fits: %s: %w", f.path, err)
	}
	if want := width * height * int64(bytesPer); int64(len(raw)) < want {
		return nil, fmt.Errorf("fits: %s: image data truncated: have %d bytes, want %d", f.path, len(raw), want)
	}

	pixels := make([][]float64, height)
	for y := int64(0); y < height; y++ {
		row := make([]float64, width)
		base := y * width * int64(bytesPer)
		for x := int64(0); x < width; x++ {
			v := decode(raw[base+x*int64(bytesPer):])
			row[x] = bzero + bscale*v
		}
		pixels[y] = row
	}
	return &Image{Pixels: pixels}, nil
}

// pixelDecoder returns a big-endian decoder for the BITPIX type and the
// per-pixel byte width.
func pixelDecoder(bitpix int64) (func([]byte) float64, int, error) {
	switch bitpix {
	case 8:
		return func(b []byte) float64 { return float64(b[0]) }, 1, nil
	case 16:
		return func(b []byte) float64 {
			return float64(int16(binary.BigEndian.Uint16(b)))
		}, 2, nil
	case 32:
		return func(b []byte) float64 {
			return float64(int32(binary.BigEndian.Uint32(b)))
		}, 4, nil
	case 64:
		return func(b []byte) float64 {
			return float64(int64(binary.BigEndian.Uint64(b)))
		}, 8, nil
	case -32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		}, 4, nil
	case -64:
		return func(b []byte) float64 {
			return math.Float64frombits(binary.BigEndian.Uint64(b))
		}, 8, nil
	}
	return nil, 0, fmt.Errorf("unsupported BITPIX %d", bitpix)
}
