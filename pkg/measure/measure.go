// Package measure computes the byte sizes reported for a bundle.
package measure

import (
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// Sizes are the raw and compressed lengths of one bundle.
type Sizes struct {
	Size    int `json:"size"`
	Gzipped int `json:"gzippedSize"`
	Brotli  int `json:"brotliSize"`
}

// Measure returns the sizes of code. The result depends only on the input
// bytes.
func Measure(code []byte) Sizes {
	return Sizes{
		Size:    len(code),
		Gzipped: GzipSize(code),
		Brotli:  BrotliSize(code),
	}
}

// GzipSize returns the length of code compressed with gzip at best
// compression. The header carries no name or timestamp.
func GzipSize(code []byte) int {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0
	}
	if _, err := zw.Write(code); err != nil {
		return 0
	}
	if err := zw.Close(); err != nil {
		return 0
	}
	return buf.Len()
}

// BrotliSize returns the length of code compressed with brotli at quality 11.
func BrotliSize(code []byte) int {
	var buf bytes.Buffer
	bw := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := bw.Write(code); err != nil {
		return 0
	}
	if err := bw.Close(); err != nil {
		return 0
	}
	return buf.Len()
}
