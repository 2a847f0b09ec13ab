// Package compression wraps the codecs used for exported snapshots.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	// Extension is appended to object keys written with this codec.
	Extension() string
	// Encoding is the Content-Encoding value for this codec.
	Encoding() string
}

// ByName returns the codec for "zstd" or "gzip".
func ByName(name string) (Compressor, error) {
	switch name {
	case "zstd":
		return ZstdCompressor{}, nil
	case "gzip":
		return GzipCompressor{}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}
