package detour_tile_cache

import (
	"errors"

	"github.com/gorustyt/tilenav/detour"
	"github.com/klauspost/compress/zstd"
)

// DT_TILECACHE_MAX_LAYER_BYTES is the largest decompressed layer: heights,
// areas and connections of a 255x255 grid.
const DT_TILECACHE_MAX_LAYER_BYTES = 3 * 255 * 255

// DtTileCacheCompressor compresses the grids of a tile cache layer.
type DtTileCacheCompressor interface {
	MaxCompressedSize(bufferSize int) int
	Compress(buffer []byte) ([]byte, detour.DtStatus)
	// Decompress fails with DT_BUFFER_TOO_SMALL when the output would exceed maxBufferSize.
	Decompress(compressed []byte, maxBufferSize int) ([]byte, detour.DtStatus)
}

// DtZstdCompressor is a DtTileCacheCompressor backed by zstd with a reusable
// encoder and decoder. It is not safe for concurrent use.
type DtZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewDtZstdCompressor() (*DtZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(DT_TILECACHE_MAX_LAYER_BYTES),
		zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &DtZstdCompressor{enc: enc, dec: dec}, nil
}

func (c *DtZstdCompressor) MaxCompressedSize(bufferSize int) int {
	return max(int(float64(bufferSize)*1.05), c.enc.MaxEncodedSize(bufferSize))
}

func (c *DtZstdCompressor) Compress(buffer []byte) ([]byte, detour.DtStatus) {
	out := c.enc.EncodeAll(buffer, make([]byte, 0, c.MaxCompressedSize(len(buffer))))
	return out, detour.DT_SUCCESS
}

// Decompress never produces more than min(maxBufferSize,
// DT_TILECACHE_MAX_LAYER_BYTES) bytes.
func (c *DtZstdCompressor) Decompress(compressed []byte, maxBufferSize int) ([]byte, detour.DtStatus) {
	if maxBufferSize < 0 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	limit := min(maxBufferSize, DT_TILECACHE_MAX_LAYER_BYTES)
	out, err := c.dec.DecodeAll(compressed, make([]byte, 0, limit))
	switch {
	case errors.Is(err, zstd.ErrDecoderSizeExceeded), errors.Is(err, zstd.ErrWindowSizeExceeded):
		return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	case err != nil:
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if len(out) > limit {
		return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	return out, detour.DT_SUCCESS
}

// Close releases the decoder goroutines.
func (c *DtZstdCompressor) Close() {
	c.enc.Close()
	c.dec.Close()
}
