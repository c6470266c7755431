// Package compression provides the content encodings the feed is served with.
package compression

type Compressor interface {
	// Encoding is the Content-Encoding token for the compressor's output.
	Encoding() string
	Compress(data []byte) ([]byte, error)
}

// Preferred lists the supported compressors, best first.
var Preferred = []Compressor{
	ZstdCompressor{},
	GzipCompressor{},
}
