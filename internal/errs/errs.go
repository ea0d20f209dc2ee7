package errs

import (
	"errors"
	"fmt"
)

// Code 标识错误类别，决定连接层的处理方式
type Code string

const (
	// Transport 套接字级失败，仅终止当前连接
	Transport Code = "TRANSPORT"
	// Framing 无法从字节流中取出合法命令
	Framing Code = "FRAMING"
	// Validation 参数类型错误、索引越界、缺少必需标识
	Validation Code = "VALIDATION"
	// HostOperation 宿主调用失败（直接或桥接）
	HostOperation Code = "HOST_OPERATION"
	// BridgeTimeout 宿主线程未在时限内完成
	BridgeTimeout Code = "BRIDGE_TIMEOUT"
	// UnknownCommand 未识别的命令类型
	UnknownCommand Code = "UNKNOWN_COMMAND"
	// Encoding 响应无法序列化
	Encoding Code = "ENCODING"
	// Internal 未归类
	Internal Code = "INTERNAL"
)

// Error 携带类别的结构化错误；Error() 只返回面向用户的消息
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Context    map[string]any
}

// New 构造结构化错误
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 同 New，支持格式化
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 为已有错误附加类别；err 为 nil 时返回 nil
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Underlying: err}
}

// WithContext 附加上下文键值（仅用于日志）
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Message == "" && e.Underlying != nil {
		return e.Underlying.Error()
	}
	if e.Underlying != nil && e.Message != e.Underlying.Error() {
		return e.Message + ": " + e.Underlying.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is 按类别比较，便于 errors.Is(err, errs.New(errs.Framing, ""))
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// CodeOf 返回错误链上第一个结构化错误的类别；普通错误视为 HostOperation
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return HostOperation
}

// Has 判断错误链中是否含有指定类别
func Has(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Underlying
	}
	return false
}
