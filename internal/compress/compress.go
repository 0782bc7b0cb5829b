// Package compress decompresses the chunk payloads stored in Anvil region files. Region
// chunks are tagged with a single scheme byte; this package dispatches on it and nothing
// else reaches into compression library internals directly.
package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Scheme identifies the compression applied to a chunk's payload, per the byte that
// follows the chunk length in its frame header.
type Scheme byte

const (
	SchemeGzip Scheme = 1
	SchemeZlib Scheme = 2
)

// InvalidSchemeError reports a scheme byte outside the set this region reader decodes.
// The Anvil format reserves other values (uncompressed, external file, custom), but this
// library only ever encounters worlds using gzip or zlib chunks.
type InvalidSchemeError struct {
	Scheme byte
}

func (e *InvalidSchemeError) Error() string {
	return fmt.Sprintf("compress: invalid chunk compression scheme %d", e.Scheme)
}

// NewReader wraps r with the decompressor matching scheme. The returned reader must be
// closed by the caller when it implements io.Closer (both gzip and zlib readers do).
func NewReader(scheme byte, r io.Reader) (io.ReadCloser, error) {
	switch Scheme(scheme) {
	case SchemeGzip:
		return gzip.NewReader(r)
	case SchemeZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	default:
		return nil, &InvalidSchemeError{Scheme: scheme}
	}
}

// Decompress reads and decompresses all of r using scheme, returning the decompressed
// bytes in full. Used when the caller wants the whole chunk payload materialized, e.g. to
// hand off to the NBT parser over a bytes.Reader.
func Decompress(scheme byte, r io.Reader) ([]byte, error) {
	dr, err := NewReader(scheme, r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()
	return io.ReadAll(dr)
}

// Writer wraps w with the compressor matching scheme. Used by the anvil package's tests to
// build compressed chunk fixtures.
type Writer interface {
	io.WriteCloser
}

// NewWriter wraps w with the compressor matching scheme.
func NewWriter(scheme byte, w io.Writer) (Writer, error) {
	switch Scheme(scheme) {
	case SchemeGzip:
		return gzip.NewWriter(w), nil
	case SchemeZlib:
		return zlib.NewWriter(w), nil
	default:
		return nil, &InvalidSchemeError{Scheme: scheme}
	}
}
