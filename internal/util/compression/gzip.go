package compression

import (
	"bytes"
	"compress/gzip"
)

type GzipCompressor struct{}

func (g GzipCompressor) Encoding() string { return "gzip" }

func (g GzipCompressor) Compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	writer, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
