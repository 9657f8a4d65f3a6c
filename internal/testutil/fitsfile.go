// Package testutil builds small synthetic WEAVE FITS files for tests. The
// encoders here are written independently of the fits package so reader tests
// are not self-confirming.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// KV formats a single header card. Strings are quoted, numbers and booleans
// rendered in fixed-width FITS style.
func KV(key string, v interface{}) string {
	var value string
	switch x := v.(type) {
	case string:
		value = fmt.Sprintf("'%-8s'", x)
	case bool:
		if x {
			value = fmt.Sprintf("%20s", "T")
		} else {
			value = fmt.Sprintf("%20s", "F")
		}
	case int:
		value = fmt.Sprintf("%20d", x)
	case int64:
		value = fmt.Sprintf("%20d", x)
	case float64:
		value = fmt.Sprintf("%20G", x)
	default:
		panic(fmt.Sprintf("testutil.KV: unsupported value %T", v))
	}
	return fmt.Sprintf("%-8s= %s", key, value)
}

func padCards(cards []string) []byte {
	var b strings.Builder
	for _, c := range cards {
		if len(c) > cardSize {
			panic(fmt.Sprintf("card too long: %q", c))
		}
		b.WriteString(c)
		b.WriteString(strings.Repeat(" ", cardSize-len(c)))
	}
	b.WriteString("END")
	b.WriteString(strings.Repeat(" ", cardSize-3))
	for b.Len()%blockSize != 0 {
		b.WriteString(" ")
	}
	return []byte(b.String())
}

func padData(data []byte) []byte {
	if rem := len(data) % blockSize; rem != 0 {
		data = append(data, make([]byte, blockSize-rem)...)
	}
	return data
}

// BuildPrimary assembles a primary HDU with no data and the given extra
// cards.
func BuildPrimary(cards ...string) []byte {
	base := []string{
		KV("SIMPLE", true),
		KV("BITPIX", 8),
		KV("NAXIS", 0),
		KV("EXTEND", true),
	}
	return padCards(append(base, cards...))
}

// BuildImageExt assembles an image extension. bitpix may be 16 (stored as
// signed ints offset by bzero) or -64 (stored as IEEE doubles).
func BuildImageExt(extname string, bitpix int, bzero float64, pixels [][]float64) []byte {
	height := len(pixels)
	width := 0
	if height > 0 {
		width = len(pixels[0])
	}
	cards := []string{
		KV("XTENSION", "IMAGE"),
		KV("BITPIX", bitpix),
		KV("NAXIS", 2),
		KV("NAXIS1", width),
		KV("NAXIS2", height),
		KV("PCOUNT", 0),
		KV("GCOUNT", 1),
		KV("EXTNAME", extname),
	}
	if bzero != 0 {
		cards = append(cards, KV("BZERO", bzero))
	}

	var data []byte
	for _, row := range pixels {
		for _, v := range row {
			switch bitpix {
			case 16:
				raw := int16(math.Round(v - bzero))
				data = binary.BigEndian.AppendUint16(data, uint16(raw))
			case -64:
				data = binary.BigEndian.AppendUint64(data, math.Float64bits(v))
			default:
				panic(fmt.Sprintf("BuildImageExt: unsupported bitpix %d", bitpix))
			}
		}
	}
	return append(padCards(cards), padData(data)...)
}

// TableColumn describes one column of a synthetic binary table. Exactly one
// of the data slices must be set, matching the TForm code.
type TableColumn struct {
	Name    string
	TForm   string // e.g. "1A", "8A", "1J", "1D"
	Strings []string
	Ints    []int64
	Floats  []float64
}

// BuildTableExt assembles a BINTABLE extension with nrows rows.
func BuildTableExt(extname string, nrows int, cols []TableColumn) []byte {
	rowLen := 0
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = tformWidth(c.TForm)
		rowLen += widths[i]
	}

	cards := []string{
		KV("XTENSION", "BINTABLE"),
		KV("BITPIX", 8),
		KV("NAXIS", 2),
		KV("NAXIS1", rowLen),
		KV("NAXIS2", nrows),
		KV("PCOUNT", 0),
		KV("GCOUNT", 1),
		KV("TFIELDS", len(cols)),
		KV("EXTNAME", extname),
	}
	for i, c := range cols {
		cards = append(cards,
			KV(fmt.Sprintf("TTYPE%d", i+1), c.Name),
			KV(fmt.Sprintf("TFORM%d", i+1), c.TForm),
		)
	}

	var data []byte
	for r := 0; r < nrows; r++ {
		for i, c := range cols {
			data = append(data, encodeCell(c, widths[i], r)...)
		}
	}
	return append(padCards(cards), padData(data)...)
}

func tformWidth(form string) int {
	repeat := 0
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		repeat = repeat*10 + int(form[i]-'0')
		i++
	}
	if repeat == 0 {
		repeat = 1
	}
	switch form[i] {
	case 'A', 'B', 'L':
		return repeat
	case 'I':
		return repeat * 2
	case 'J', 'E':
		return repeat * 4
	case 'K', 'D':
		return repeat * 8
	}
	panic(fmt.Sprintf("tformWidth: unsupported TFORM %q", form))
}

func encodeCell(c TableColumn, width int, row int) []byte {
	code := c.TForm[len(c.TForm)-1]
	switch code {
	case 'A':
		s := c.Strings[row]
		if len(s) > width {
			s = s[:width]
		}
		return []byte(s + strings.Repeat(" ", width-len(s)))
	case 'I':
		return binary.BigEndian.AppendUint16(nil, uint16(int16(c.Ints[row])))
	case 'J':
		return binary.BigEndian.AppendUint32(nil, uint32(int32(c.Ints[row])))
	case 'K':
		return binary.BigEndian.AppendUint64(nil, uint64(c.Ints[row]))
	case 'E':
		return binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(c.Floats[row])))
	case 'D':
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(c.Floats[row]))
	}
	panic(fmt.Sprintf("encodeCell: unsupported TFORM %q", c.TForm))
}

// WriteFITS concatenates HDUs into a file under dir and returns its path.
func WriteFITS(t *testing.T, dir, name string, hdus ...[]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var data []byte
	for _, h := range hdus {
		data = append(data, h...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
