// Package artifact compresses finished images and transparently decompresses them again for reading.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

// Method is a compression format.
type Method string

const (
	None Method = "none"
	Zstd Method = "zstd"
	Gzip Method = "gzip"
	Xz   Method = "xz"
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
	xzMagic   = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
)

// ParseMethod parses the name of a compression method. An empty name means None.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(name)); m {
	case "", None:
		return None, nil
	case Zstd, Gzip, Xz:
		return m, nil
	default:
		return None, fmt.Errorf("unknown compression %q, supported are none, zstd, gzip and xz", name)
	}
}

// Extension returns the file extension including the dot.
func (m Method) Extension() string {
	switch m {
	case Zstd:
		return ".zst"
	case Gzip:
		return ".gz"
	case Xz:
		return ".xz"
	}
	return ""
}

// Detect identifies the compression of the file by its magic bytes.
func Detect(r io.ReaderAt) (Method, error) {
	head := make([]byte, len(xzMagic))
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return None, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd, nil
	case bytes.HasPrefix(head, xzMagic):
		return Xz, nil
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip, nil
	}
	return None, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newWriter(w io.Writer, m Method) (io.WriteCloser, error) {
	switch m {
	case Zstd:
		return zstd.NewWriter(w)
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case Xz:
		return xz.NewWriter(w)
	}
	return nopWriteCloser{w}, nil
}

func newReader(r io.Reader, m Method) (io.Reader, func(), error) {
	switch m {
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case Gzip:
		g, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case Xz:
		x, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return x, func() {}, nil
	}
	return r, func() {}, nil
}

// Compress replaces the file at name by its compressed version and returns the new name.
// With None nothing happens.
func Compress(fs afero.Fs, name string, m Method) (string, error) {
	if m == None {
		return name, nil
	}

	src, err := fs.Open(name)
	if err != nil {
		return "", err
	}
	defer src.Close()

	target := name + m.Extension()
	dst, err := fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}

	w, err := newWriter(dst, m)
	if err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("create %s writer: %w", m, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		_ = dst.Close()
		return "", fmt.Errorf("compress %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("finish %s stream: %w", m, err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	_ = src.Close()
	if err := fs.Remove(name); err != nil {
		return "", err
	}
	return target, nil
}

// Open prepares the image at name for reading. Compressed images are decompressed into memory,
// the returned filesystem and name point to the raw image in that case.
func Open(fs afero.Fs, name string) (afero.Fs, string, Method, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, "", None, err
	}
	defer f.Close()

	m, err := Detect(f)
	if err != nil {
		return nil, "", None, fmt.Errorf("detect compression of %q: %w", name, err)
	}
	if m == None {
		return fs, name, None, nil
	}

	r, closeReader, err := newReader(f, m)
	if err != nil {
		return nil, "", m, fmt.Errorf("open %s stream of %q: %w", m, name, err)
	}
	defer closeReader()

	raw := strings.TrimSuffix(name, m.Extension())
	if raw == name {
		raw = name + ".raw"
	}

	mem := afero.NewMemMapFs()
	out, err := mem.Create(raw)
	if err != nil {
		return nil, "", m, err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return nil, "", m, fmt.Errorf("decompress %q: %w", name, err)
	}
	return mem, raw, m, nil
}
