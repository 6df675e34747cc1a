package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// LZ4 is the Compressor used for documents held in memory between the
// select and upload steps.
type LZ4 struct{}

func (LZ4) Compress(data []byte) ([]byte, error)   { return Compress(data) }
func (LZ4) Decompress(data []byte) ([]byte, error) { return Decompress(data) }

// Compress uses the LZ4 frame format, fast with moderate ratio
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress data, %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer, %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress
func Decompress(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to decompress data, %w", err)
	}
	return buf.Bytes(), nil
}
