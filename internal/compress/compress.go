package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm. The value is stored on disk.
type Type uint8

const (
	// None stores data as is.
	None Type = 0
	// LZ4 is LZ4 block compression (fast, good for hot data).
	LZ4 Type = 1
	// ZSTD is ZSTD block compression (better ratio, good for cold data).
	ZSTD Type = 2
)

var (
	// ErrUnknownType is returned for a codec id this package does not know.
	ErrUnknownType = errors.New("compress: unknown compression type")
	// ErrSizeMismatch is returned when decoded data has an unexpected length.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
)

// ParseType maps a config name to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool { return t <= ZSTD }

// ZSTD encoder/decoder pools
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compress appends the compressed form of data to dst and returns the
// result together with the type that was actually used: when compression
// saves less than 10% the data is stored uncompressed and None is returned.
func Compress(dst, data []byte, t Type) ([]byte, Type, error) {
	if t == None || len(data) == 0 {
		return append(dst, data...), None, nil
	}

	var compressed []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, None, err
		}
		// n == 0 means incompressible.
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, None, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return append(dst, data...), None, nil
	}
	return append(dst, compressed...), t, nil
}

// Decompress decodes data compressed with t into a new slice of exactly
// rawLen bytes. With None, data is returned as is.
func Decompress(data []byte, t Type, rawLen int) ([]byte, error) {
	switch t {
	case None:
		if len(data) != rawLen {
			return nil, ErrSizeMismatch
		}
		return data, nil

	case LZ4:
		result := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, ErrSizeMismatch
		}
		return result, nil

	case ZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(data, make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawLen {
			return nil, ErrSizeMismatch
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}
