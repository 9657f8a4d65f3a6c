package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a parsed FITS binary table extension.
type Table struct {
	nrows   int
	rowLen  int
	raw     []byte
	columns []tableColumn
	byName  map[string]int
}

type tableColumn struct {
	name   string
	code   byte // TFORM type code
	repeat int
	offset int // byte offset within a row
	width  int // total byte width (repeat * element size)
}

// elementSize maps TFORM type codes to their byte widths.
func elementSize(code byte) (int, error) {
	switch code {
	case 'L', 'A', 'B':
		return 1, nil
	case 'I':
		return 2, nil
	case 'J', 'E':
		return 4, nil
	case 'K', 'D':
		return 8, nil
	}
	return 0, fmt.Errorf("unsupported TFORM code %q", string(code))
}

// Table reads the named binary-table extension.
func (f *File) Table(extname string) (*Table, error) {
	hdu, err := f.Extension(extname)
	if err != nil {
		return nil, err
	}
	h := hdu.Header
	if xt := h.StrDefault("XTENSION", ""); xt != "BINTABLE" {
		return nil, fmt.Errorf("fits: %s: extension %q is %q, not a binary table", f.path, extname, xt)
	}
	rowLen, err := h.Int("NAXIS1")
	if err != nil {
		return nil, err
	}
	nrows, err := h.Int("NAXIS2")
	if err != nil {
		return nil, err
	}
	nfields, err := h.Int("TFIELDS")
	if err != nil {
		return nil, err
	}

	t := &Table{
		nrows:  int(nrows),
		rowLen: int(rowLen),
		byName: make(map[string]int),
	}
	offset := 0
	for i := int64(1); i <= nfields; i++ {
		name, err := h.Str(fmt.Sprintf("TTYPE%d", i))
		if err != nil {
			return nil, fmt.Errorf("fits: %s: %w", f.path, err)
		}
		form, err := h.Str(fmt.Sprintf("TFORM%d", i))
		if err != nil {
			return nil, fmt.Errorf("fits: %s: %w", f.path, err)
		}
		repeat, code, err := parseTForm(form)
		if err != nil {
			return nil, fmt.Errorf("fits: %s: column %q: %w", f.path, name, err)
		}
		size, err := elementSize(code)
		if err != nil {
			return nil, fmt.Errorf("fits: %s: column %q: %w", f.path, name, err)
		}
		col := tableColumn{
			name:   strings.TrimSpace(name),
			code:   code,
			repeat: repeat,
			offset: offset,
			width:  repeat * size,
		}
		t.byName[col.name] = len(t.columns)
		t.columns = append(t.columns, col)
		offset += col.width
	}
	if offset > t.rowLen {
		return nil, fmt.Errorf("fits: %s: columns span %d bytes but NAXIS1 is %d", f.path, offset, t.rowLen)
	}

	raw, err := f.readData(hdu)
	if err != nil {
		return nil, err
	}
	if want := t.nrows * t.rowLen; len(raw) < want {
		return nil, fmt.Errorf("fits: %s: table data truncated: have %d bytes, want %d", f.path, len(raw), want)
	}
	t.raw = raw
	return t, nil
}

// parseTForm splits a TFORM value like "16A" or "1D" or "J" into its repeat
// count and type code.
func parseTForm(form string) (int, byte, error) {
	form = strings.TrimSpace(form)
	if form == "" {
		return 0, 0, fmt.Errorf("empty TFORM")
	}
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		var err error
		repeat, err = strconv.Atoi(form[:i])
		if err != nil {
			return 0, 0, fmt.Errorf("bad TFORM %q", form)
		}
	}
	if i >= len(form) {
		return 0, 0, fmt.Errorf("TFORM %q has no type code", form)
	}
	return repeat, form[i], nil
}

// NRows returns the number of table rows.
func (t *Table) NRows() int { return t.nrows }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func (t *Table) column(name string) (*tableColumn, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("fits: no table column %q", name)
	}
	return &t.columns[i], nil
}

func (t *Table) cell(col *tableColumn, row int) []byte {
	base := row*t.rowLen + col.offset
	return t.raw[base : base+col.width]
}

// Strings reads a character column ('A'), one trimmed string per row.
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	if col.code != 'A' {
		return nil, fmt.Errorf("fits: column %q has code %q, not A", name, string(col.code))
	}
	out := make([]string, t.nrows)
	for r := 0; r < t.nrows; r++ {
		out[r] = strings.TrimRight(string(t.cell(col, r)), " \x00")
	}
	return out, nil
}

// Ints reads a scalar integer column (I, J or K) as int64s.
func (t *Table) Ints(name string) ([]int64, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	if col.repeat != 1 {
		return nil, fmt.Errorf("fits: column %q is an array column", name)
	}
	out := make([]int64, t.nrows)
	for r := 0; r < t.nrows; r++ {
		b := t.cell(col, r)
		switch col.code {
		case 'I':
			out[r] = int64(int16(binary.BigEndian.Uint16(b)))
		case 'J':
			out[r] = int64(int32(binary.BigEndian.Uint32(b)))
		case 'K':
			out[r] = int64(binary.BigEndian.Uint64(b))
		default:
			return nil, fmt.Errorf("fits: column %q has code %q, not an integer", name, string(col.code))
		}
	}
	return out, nil
}

// Floats reads a scalar numeric column (I, J, K, E or D) as float64s.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	if col.repeat != 1 {
		return nil, fmt.Errorf("fits: column %q is an array column", name)
	}
	switch col.code {
	case 'E', 'D':
		out := make([]float64, t.nrows)
		for r := 0; r < t.nrows; r++ {
			b := t.cell(col, r)
			if col.code == 'E' {
				out[r] = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
			} else {
				out[r] = math.Float64frombits(binary.BigEndian.Uint64(b))
			}
		}
		return out, nil
	case 'I', 'J', 'K':
		ints, err := t.Ints(name)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("fits: column %q has code %q, not numeric", name, string(col.code))
}

// FloatArrays reads an array column (E or D with repeat > 1), one slice per
// row.
func (t *Table) FloatArrays(name string) ([][]float64, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	if col.code != 'E' && col.code != 'D' {
		return nil, fmt.Errorf("fits: column %q has code %q, not a float array", name, string(col.code))
	}
	size, _ := elementSize(col.code)
	out := make([][]float64, t.nrows)
	for r := 0; r < t.nrows; r++ {
		b := t.cell(col, r)
		row := make([]float64, col.repeat)
		for i := 0; i < col.repeat; i++ {
			if col.code == 'E' {
				row[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[i*size:])))
			} else {
				row[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*size:]))
			}
		}
		out[r] = row
	}
	return out, nil
}
