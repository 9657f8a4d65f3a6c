package fits

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// File is an open FITS file positioned for sequential HDU access.
type File struct {
	f    *os.File
	path string
}

// HDU is one header-data unit: its header and the absolute offset of its
// data block within the file.
type HDU struct {
	Header     *Header
	dataOffset int64
}

// Open opens path for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fits: %w", err)
	}
	return &File{f: f, path: path}, nil
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// PrimaryHeader reads the header of the primary HDU.
func (f *File) PrimaryHeader() (*Header, error) {
	hdu, err := f.readHDUAt(0)
	if err != nil {
		return nil, fmt.Errorf("fits: %s: %w", f.path, err)
	}
	return hdu.Header, nil
}

// Extension walks the extension HDUs and returns the first whose EXTNAME
// matches name.
func (f *File) Extension(name string) (*HDU, error) {
	offset := int64(0)
	for {
		hdu, err := f.readHDUAt(offset)
		if err == io.EOF {
			return nil, fmt.Errorf("fits: %s: no extension named %q", f.path, name)
		}
		if err != nil {
			return nil, fmt.Errorf("fits: %s: %w", f.path, err)
		}
		if hdu.Header.StrDefault("EXTNAME", "") == name {
			return hdu, nil
		}
		size, err := dataSize(hdu.Header)
		if err != nil {
			return nil, fmt.Errorf("fits: %s: %w", f.path, err)
		}
		offset = hdu.dataOffset + size
	}
}

// readHDUAt parses the header starting at offset and records where its data
// begins.
func (f *File) readHDUAt(offset int64) (*HDU, error) {
	if _, err := f.f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	h, err := readHeader(bufio.NewReader(f.f))
	if err != nil {
		return nil, err
	}
	return &HDU{Header: h, dataOffset: offset + h.Size()}, nil
}

// readData returns the raw (unpadded) data bytes of the HDU.
func (f *File) readData(hdu *HDU) ([]byte, error) {
	n, err := rawDataSize(hdu.Header)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := f.f.ReadAt(buf, hdu.dataOffset); err != nil {
		return nil, fmt.Errorf("fits: %s: reading %d data bytes: %w", f.path, n, err)
	}
	return buf, nil
}

// rawDataSize is the unpadded byte length of an HDU's data block.
func rawDataSize(h *Header) (int64, error) {
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	n := int64(1)
	for i := int64(1); i <= naxis; i++ {
		axis, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		n *= axis
	}
	bytesPer := bitpix / 8
	if bytesPer < 0 {
		bytesPer = -bytesPer
	}
	n *= bytesPer
	// Binary tables may carry a heap after the main table.
	if pcount, err := h.Int("PCOUNT"); err == nil {
		n += pcount
	}
	return n, nil
}

// dataSize is the padded on-disk length of an HDU's data block.
func dataSize(h *Header) (int64, error) {
	n, err := rawDataSize(h)
	if err != nil {
		return 0, err
	}
	if rem := n % blockSize; rem != 0 {
		n += blockSize - rem
	}
	return n, nil
}

// ReadPrimaryHeader opens path and reads only the primary header.
func ReadPrimaryHeader(path string) (*Header, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.PrimaryHeader()
}

// ReadPrimaryHeaders reads the primary headers of all paths using up to
// workers parallel readers (1 = sequential). Results align with paths; the
// first failure aborts the batch.
func ReadPrimaryHeaders(ctx context.Context, paths []string, workers int) ([]*Header, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]*Header, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := ReadPrimaryHeader(path)
			if err != nil {
				return err
			}
			out[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
