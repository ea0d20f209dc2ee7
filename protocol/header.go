package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/legamerdc/liveremote/internal/errs"
)

// 前缀帧头部 = LenFlags（2 或 4 字节，BE）+ Content（2 字节，BE），其后为负载。
//   短头: bit15 Compressed | bit14 Batched | bit13 Ext=0 | bit12..0 长度
//   长头: bit31 Compressed | bit30 Batched | bit29 Ext=1 | bit28..0 长度
// 长度只计负载（压缩后），不含 Content。

const (
	flagCompressed = 1 << 15
	flagBatched    = 1 << 14
	flagExt        = 1 << 13

	shortMaxLen = flagExt - 1   // 8191
	longMaxLen  = (1 << 29) - 1 // 512 MiB - 1
	contentSize = 2

	// MaxHeaderSize 长头加 Content
	MaxHeaderSize = 4 + contentSize
)

var (
	errHeaderTooShort   = errors.New("protocol: header too short")
	errLengthOutOfRange = errors.New("protocol: length out of range")
)

// Header 一条前缀帧的头部
type Header struct {
	Content    Content
	Length     int
	Compressed bool
	Batched    bool
}

// Size 编码后的头部字节数（含 Content）
func (h Header) Size() int {
	if h.Length > shortMaxLen {
		return 4 + contentSize
	}
	return 2 + contentSize
}

// Append 把头部追加到 dst；长度不超过 8191 时用短头
func (h Header) Append(dst []byte) ([]byte, error) {
	if h.Length < 0 || h.Length > longMaxLen {
		return nil, errLengthOutOfRange
	}
	var flags uint32
	if h.Compressed {
		flags |= flagCompressed
	}
	if h.Batched {
		flags |= flagBatched
	}
	if h.Length <= shortMaxLen {
		dst = binary.BigEndian.AppendUint16(dst, uint16(flags|uint32(h.Length)))
	} else {
		dst = binary.BigEndian.AppendUint32(dst, (flags|flagExt)<<16|uint32(h.Length))
	}
	return binary.BigEndian.AppendUint16(dst, uint16(h.Content)), nil
}

// DecodeHeader 解析 b 开头的头部，返回头部与其字节数。
// 数据不足时返回 errHeaderTooShort，调用方应等待更多字节。
func DecodeHeader(b []byte) (Header, int, error) {
	if len(b) < 2 {
		return Header{}, 0, errHeaderTooShort
	}
	v := uint32(binary.BigEndian.Uint16(b))
	h := Header{
		Compressed: v&flagCompressed != 0,
		Batched:    v&flagBatched != 0,
	}
	n := 2
	if v&flagExt == 0 {
		h.Length = int(v & shortMaxLen)
	} else {
		if len(b) < 4 {
			return Header{}, 0, errHeaderTooShort
		}
		h.Length = int(binary.BigEndian.Uint32(b) & longMaxLen)
		n = 4
	}
	if len(b) < n+contentSize {
		return Header{}, 0, errHeaderTooShort
	}
	h.Content = Content(binary.BigEndian.Uint16(b[n:]))
	return h, n + contentSize, nil
}

// Check 在负载到达前拒绝无法服务的帧：批量帧、超限长度、未知编码。
// 返回的都是 Framing 错误，流已无法继续对齐。
func (h Header) Check(maxPayload int) error {
	if h.Batched {
		return errs.New(errs.Framing, "batched frames are not supported")
	}
	if maxPayload > 0 && h.Length > maxPayload {
		return errs.Newf(errs.Framing, "frame length %d exceeds limit %d", h.Length, maxPayload)
	}
	if _, err := CodecFor(h.Content); err != nil {
		return err
	}
	return nil
}
