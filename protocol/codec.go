package protocol

import (
	"encoding/json"
	"errors"

	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/internal/ring"
)

// Frame 为一条前缀帧的解析结果（已解压）。
type Frame struct {
	Content Content
	Payload []byte
}

// EncodeFrame 返回：头部 + content + payload（压缩可选）。
func EncodeFrame(content Content, payload []byte, compressed bool) ([]byte, error) {
	body := payload
	if compressed {
		body = compress(payload)
	}
	h := Header{Content: content, Length: len(body), Compressed: compressed}
	out, err := h.Append(make([]byte, 0, h.Size()+len(body)))
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	return out, nil
}

// EncodeCommandFrame 客户端使用：编码命令并封装为前缀帧
func EncodeCommandFrame(codec Codec, cmd Command) ([]byte, error) {
	payload, err := EncodeCommand(codec, cmd)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(codec.Content(), payload, false)
}

// ParseFrame 尝试从 buf 头部解析一帧；consumed == 0 且 err == nil 表示帧不完整。
// 批量帧、超限长度、解压失败均为 Framing 错误，流已无法继续对齐。
// 解压输出同样受 maxPayload 约束（<= 0 时取长头上限）。
func ParseFrame(buf []byte, maxPayload int) (f Frame, consumed int, _ error) {
	h, n, err := DecodeHeader(buf)
	if err != nil {
		if errors.Is(err, errHeaderTooShort) {
			return Frame{}, 0, nil
		}
		return Frame{}, 0, errs.Wrap(err, errs.Framing, "bad frame header")
	}
	if err := h.Check(maxPayload); err != nil {
		return Frame{}, 0, err
	}
	total := n + h.Length
	if len(buf) < total {
		return Frame{}, 0, nil
	}
	body := buf[n:total]
	if !h.Compressed {
		payload := make([]byte, h.Length)
		copy(payload, body)
		return Frame{Content: h.Content, Payload: payload}, total, nil
	}
	limit := maxPayload
	if limit <= 0 {
		limit = longMaxLen
	}
	payload, err := decompress(body, limit)
	if err != nil {
		if errors.Is(err, errDecodedTooLarge) {
			return Frame{}, 0, errs.Newf(errs.Framing, "decompressed payload exceeds limit %d", limit)
		}
		return Frame{}, 0, errs.Wrap(err, errs.Framing, "bad compressed frame")
	}
	return Frame{Content: h.Content, Payload: payload}, total, nil
}

// Message 为 Framer 取出的一条请求。
// Err 非空表示负载完整但不是合法命令：回复错误后连接继续。
type Message struct {
	Command Command
	Codec   Codec
	Err     error
}

// Framer 从连接的接收缓冲中切分请求，并把响应编码为线上字节。
type Framer interface {
	// Next 返回 ok=false 表示需要更多数据；error 表示流已不可恢复
	Next(buf *ring.Buffer) (msg Message, ok bool, err error)
	Encode(codec Codec, r Response) ([]byte, error)
}

// LegacyFramer 无边界协议：把整个缓冲当作一个 JSON 值尝试解析。
// 解析失败一律视为“数据未到齐”，因此无法区分不完整与永久畸形的输入，
// 畸形负载会让连接一直等待且不产生任何响应。
type LegacyFramer struct{}

func NewLegacyFramer() *LegacyFramer { return &LegacyFramer{} }

func (LegacyFramer) Next(buf *ring.Buffer) (Message, bool, error) {
	data := buf.Bytes()
	if len(data) == 0 || !json.Valid(data) {
		return Message{}, false, nil
	}
	v, err := JSON.Decode(data)
	buf.Reset()
	if err != nil {
		return Message{Codec: JSON, Err: errs.Wrap(err, errs.Framing, "malformed command payload")}, true, nil
	}
	cmd, err := CommandFromValue(v)
	return Message{Command: cmd, Codec: JSON, Err: err}, true, nil
}

func (LegacyFramer) Encode(_ Codec, r Response) ([]byte, error) {
	return EncodeResponse(JSON, r), nil
}

// PrefixOptions 控制前缀帧的上限与压缩
type PrefixOptions struct {
	MaxPayload        int
	CompressThreshold int // 响应负载超过该字节数时压缩；0 关闭
}

// PrefixFramer 长度前缀协议（LenFlags + content + payload）。
type PrefixFramer struct {
	opts PrefixOptions
}

func NewPrefixFramer(opts PrefixOptions) *PrefixFramer { return &PrefixFramer{opts: opts} }

func (p *PrefixFramer) Next(buf *ring.Buffer) (Message, bool, error) {
	if buf.Len() < 2 {
		return Message{}, false, nil
	}
	f, n, err := ParseFrame(buf.Bytes(), p.opts.MaxPayload)
	if err != nil {
		return Message{}, false, err
	}
	if n == 0 {
		return Message{}, false, nil
	}
	buf.Discard(n)
	codec, err := CodecFor(f.Content)
	if err != nil {
		return Message{}, false, err
	}
	cmd, err := DecodeCommand(codec, f.Payload)
	if err != nil && errs.CodeOf(err) == errs.Framing {
		return Message{Codec: codec}, false, err
	}
	return Message{Command: cmd, Codec: codec, Err: err}, true, nil
}

func (p *PrefixFramer) Encode(codec Codec, r Response) ([]byte, error) {
	if codec == nil {
		codec = JSON
	}
	payload := EncodeResponse(codec, r)
	compressed := p.opts.CompressThreshold > 0 && len(payload) > p.opts.CompressThreshold
	return EncodeFrame(codec.Content(), payload, compressed)
}
