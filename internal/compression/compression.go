// Package compression encodes event payloads before they leave the process.
package compression

import (
	"fmt"
)

// Algorithm identifies a payload encoding. The name travels with each event
// so consumers can decode without out-of-band configuration.
type Algorithm string

const (
	None   Algorithm = "none"
	Snappy Algorithm = "snappy"
)

// Compressor encodes and decodes payloads
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// GetCompressor returns the compressor for algo. An empty name means None.
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None, "":
		return NoneCompressor{}, nil
	case Snappy:
		return SnappyCompressor{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", algo)
	}
}

// NoneCompressor passes payloads through unchanged
type NoneCompressor struct{}

func (NoneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoneCompressor) Algorithm() Algorithm                   { return None }
