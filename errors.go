package liveremote

import "errors"

var (
	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("liveremote: invalid argument")

	// ErrAttached 重复挂载
	ErrAttached = errors.New("liveremote: surface already attached")

	// ErrDetached 未挂载时的操作
	ErrDetached = errors.New("liveremote: surface not attached")
)
