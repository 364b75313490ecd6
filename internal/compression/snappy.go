package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCompressor uses the snappy block format
type SnappyCompressor struct{}

func (SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

func (SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return out, nil
}

func (SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
