package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/legamerdc/liveremote/internal/errs"
)

// Command 为一次请求：类型标签 + 参数表。解码后不再修改。
type Command struct {
	Type   string         `json:"type" cbor:"type"`
	Params map[string]any `json:"params" cbor:"params"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response 与 Command 一一对应。
// Result 仅在 success 时编码，Message 仅在 error 时编码。
type Response struct {
	Status  Status
	Result  any
	Message string
}

func Success(result any) Response { return Response{Status: StatusSuccess, Result: result} }

func Failure(message string) Response { return Response{Status: StatusError, Message: message} }

// FailureFrom 将错误转换为错误响应，消息即 err.Error()
func FailureFrom(err error) Response { return Failure(err.Error()) }

func (r Response) OK() bool { return r.Status == StatusSuccess }

type successWire struct {
	Status Status `json:"status" cbor:"status"`
	Result any    `json:"result" cbor:"result"`
}

type errorWire struct {
	Status  Status `json:"status" cbor:"status"`
	Message string `json:"message" cbor:"message"`
}

func (r Response) wire() any {
	if r.Status == StatusSuccess {
		return successWire{Status: StatusSuccess, Result: decimalFloats(r.Result)}
	}
	return errorWire{Status: StatusError, Message: r.Message}
}

// jsonFloat 编码时始终带小数点：120.0 而不是 120
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(float64(f))
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

// decimalFloats 把结果中的 float64 换成 jsonFloat，整数类型保持不变
func decimalFloats(v any) any {
	switch t := v.(type) {
	case float64:
		return jsonFloat(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = decimalFloats(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = decimalFloats(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = decimalFloats(e)
		}
		return out
	default:
		return v
	}
}

// Content 标识负载编码，位于前缀帧头之后。
type Content uint16

const (
	ContentJSON Content = 1
	ContentCBOR Content = 2
)

func (c Content) String() string {
	switch c {
	case ContentJSON:
		return "json"
	case ContentCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("content(%d)", uint16(c))
	}
}

// Codec 负责单条负载的编解码。
type Codec interface {
	Content() Content
	Marshal(v any) ([]byte, error)
	// Decode 解码为通用值：对象为 map[string]any，JSON 数字保留为 json.Number
	Decode(data []byte) (any, error)
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBORCodec()
)

// CodecFor 按 content 取编解码器
func CodecFor(c Content) (Codec, error) {
	switch c {
	case ContentJSON:
		return JSON, nil
	case ContentCBOR:
		return CBOR, nil
	default:
		return nil, errs.Newf(errs.Framing, "unsupported content type %d", uint16(c))
	}
}

// CodecByName 供配置使用："json" / "cbor"
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("protocol: unknown encoding %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Content() Content { return ContentJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Decode(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8 in JSON payload")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// 与整体解析语义一致：尾部只允许空白
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid character after top-level value")
	}
	return v, nil
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Content() Content { return ContentCBOR }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeCommand 将负载解码为 Command。
// 负载本身不可解码时返回 Framing 错误；可解码但不是命令对象时返回 Validation 错误。
func DecodeCommand(codec Codec, data []byte) (Command, error) {
	v, err := codec.Decode(data)
	if err != nil {
		return Command{}, errs.Wrap(err, errs.Framing, "malformed command payload")
	}
	return CommandFromValue(v)
}

// CommandFromValue 从已解码的通用值中提取 Command
func CommandFromValue(v any) (Command, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Command{}, errs.Newf(errs.Validation, "command must be an object, got %s", kindOf(v))
	}
	cmd := Command{Params: map[string]any{}}
	switch t := obj["type"].(type) {
	case nil:
	case string:
		cmd.Type = t
	default:
		return Command{}, errs.Newf(errs.Validation, "command type must be a string, got %s", kindOf(t))
	}
	switch p := obj["params"].(type) {
	case nil:
	case map[string]any:
		cmd.Params = p
	default:
		return Command{}, errs.Newf(errs.Validation, "command params must be an object, got %s", kindOf(p))
	}
	return cmd, nil
}

// EncodeCommand 客户端使用
func EncodeCommand(codec Codec, cmd Command) ([]byte, error) {
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}
	return codec.Marshal(cmd)
}

// EncodeResponse 编码响应；结果不可序列化时退化为错误响应，保证总有输出。
func EncodeResponse(codec Codec, r Response) []byte {
	b, err := codec.Marshal(r.wire())
	if err == nil {
		return b
	}
	fallback := Failure(errs.Wrap(err, errs.Encoding, "failed to encode response").Error())
	b, err = codec.Marshal(fallback.wire())
	if err != nil {
		// 纯字符串消息不会失败；保留兜底
		b, _ = codec.Marshal(errorWire{Status: StatusError, Message: "failed to encode response"})
	}
	return b
}

// DecodeResponse 客户端使用
func DecodeResponse(codec Codec, data []byte) (Response, error) {
	v, err := codec.Decode(data)
	if err != nil {
		return Response{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Response{}, fmt.Errorf("protocol: response must be an object, got %s", kindOf(v))
	}
	status, _ := obj["status"].(string)
	switch Status(status) {
	case StatusSuccess:
		return Response{Status: StatusSuccess, Result: obj["result"]}, nil
	case StatusError:
		msg, _ := obj["message"].(string)
		return Response{Status: StatusError, Message: msg}, nil
	default:
		return Response{}, fmt.Errorf("protocol: unknown response status %q", status)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, uint64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
