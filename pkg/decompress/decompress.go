// Package decompress inflates compressed volume buffers.
// Each Decompressor turns a whole compressed buffer into a whole
// uncompressed buffer. Failures opening the stream (bad magic, unsupported
// flags) and failures while inflating are both reported as the returned error.
package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"mrivolume/pkg/format"
)

// ErrTooLarge is returned when the inflated stream exceeds the configured ceiling
var ErrTooLarge = errors.New("decompressed data exceeds size limit")

// Decompressor inflates a complete compressed buffer
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Gzip inflates gzip streams, including multi-member streams.
type Gzip struct {
	// MaxBytes caps the inflated size. Zero means unlimited.
	MaxBytes int64
}

// Decompress implements Decompressor.
func (g Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readAll(r, g.MaxBytes, len(data))
}

// Zstd inflates zstandard frames.
type Zstd struct {
	MaxBytes int64
}

// Decompress implements Decompressor.
func (z Zstd) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()

	out, err := readAll(dec, z.MaxBytes, len(data))
	if err != nil && !errors.Is(err, ErrTooLarge) {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, err
}

// LZ4 inflates LZ4 frame streams.
type LZ4 struct {
	MaxBytes int64
}

// Decompress implements Decompressor.
func (l LZ4) Decompress(data []byte) ([]byte, error) {
	out, err := readAll(lz4.NewReader(bytes.NewReader(data)), l.MaxBytes, len(data))
	if err != nil && !errors.Is(err, ErrTooLarge) {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	return out, err
}

// For returns the decompressor registered for c, or nil for CompressionNone
// and unknown values.
func For(c format.Compression, maxBytes int64) Decompressor {
	switch c {
	case format.CompressionGzip:
		return Gzip{MaxBytes: maxBytes}
	case format.CompressionZstd:
		return Zstd{MaxBytes: maxBytes}
	case format.CompressionLZ4:
		return LZ4{MaxBytes: maxBytes}
	default:
		return nil
	}
}

// readAll drains r, failing once more than maxBytes have been produced.
// sizeHint is the compressed length; volumes usually inflate by a small factor.
func readAll(r io.Reader, maxBytes int64, sizeHint int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(sizeHint * 3)

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return buf.Bytes(), nil
}
