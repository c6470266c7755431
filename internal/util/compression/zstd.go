package compression

import "github.com/klauspost/compress/zstd"

type ZstdCompressor struct{}

func (z ZstdCompressor) Encoding() string { return "zstd" }

func (z ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}
