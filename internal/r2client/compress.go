package r2client

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize caps decompressed blobs (8 MiB).
const maxDecodedSize = 8 << 20

// Shared coders; EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
)

// Compress returns data compressed with zstd.
func Compress(data []byte) []byte {
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Decompress reads a zstd stream fully and returns the decoded bytes.
func Decompress(r io.Reader) ([]byte, error) {
	compressed, err := io.ReadAll(io.LimitReader(r, maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("r2client: read compressed: %w", err)
	}
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("r2client: decompress: %w", err)
	}
	return data, nil
}
