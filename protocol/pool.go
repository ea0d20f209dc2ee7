package protocol

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxDecodeWindow 限制单帧窗口，避免恶意帧声明超大窗口
const maxDecodeWindow = 8 << 20

var errDecodedTooLarge = errors.New("protocol: decoded payload too large")

var (
	encoderPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		return enc
	}}
	decoderPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxWindow(maxDecodeWindow),
			zstd.WithDecoderMaxMemory(longMaxLen),
		)
		return dec
	}}
)

func getEncoder() *zstd.Encoder  { return encoderPool.Get().(*zstd.Encoder) }
func putEncoder(e *zstd.Encoder) { encoderPool.Put(e) }
func getDecoder() *zstd.Decoder  { return decoderPool.Get().(*zstd.Decoder) }
func putDecoder(d *zstd.Decoder) {
	_ = d.Reset(nil)
	decoderPool.Put(d)
}

func compress(p []byte) []byte {
	zw := getEncoder()
	out := zw.EncodeAll(p, nil)
	putEncoder(zw)
	return out
}

// decompress 流式解压，输出超过 limit 字节即停止并返回 errDecodedTooLarge
func decompress(p []byte, limit int) ([]byte, error) {
	dz := getDecoder()
	defer putDecoder(dz)
	if err := dz.Reset(bytes.NewReader(p)); err != nil {
		return nil, err
	}
	out, err := io.ReadAll(io.LimitReader(dz, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		return nil, errDecodedTooLarge
	}
	return out, nil
}
