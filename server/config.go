package server

import (
	"context"
	"fmt"
	"time"

	"github.com/legamerdc/liveremote/protocol"
)

// Handler 处理一条命令并返回唯一的响应（router.Router 实现）
type Handler interface {
	Dispatch(ctx context.Context, cmd protocol.Command) protocol.Response
}

// HandlerFunc 把函数适配为 Handler
type HandlerFunc func(ctx context.Context, cmd protocol.Command) protocol.Response

func (f HandlerFunc) Dispatch(ctx context.Context, cmd protocol.Command) protocol.Response {
	return f(ctx, cmd)
}

// Framing 选择线上分帧方式
type Framing string

const (
	// FramingLegacy 无边界 JSON：整个缓冲解析成功才算一条消息
	FramingLegacy Framing = "legacy"
	// FramingPrefixed 长度前缀帧（默认）
	FramingPrefixed Framing = "prefixed"
)

type Config struct {
	ListenNetwork string  `yaml:"network"`
	ListenAddress string  `yaml:"address"`
	Framing       Framing `yaml:"framing"`

	ReadChunkSize     int `yaml:"read_chunk_size"`
	RxRingSize        int `yaml:"rx_ring_size"`
	MaxMessageSize    int `yaml:"max_message_size"`
	CompressThreshold int `yaml:"compress_threshold"`

	PollInterval  time.Duration `yaml:"poll_interval"`
	AcceptBackoff time.Duration `yaml:"accept_backoff"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`

	// MaxConnections 0 表示不限
	MaxConnections int `yaml:"max_connections"`
	// CommandsPerSecond 每连接的命令速率，0 表示不限
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	CommandBurst      int     `yaml:"command_burst"`
}

func DefaultConfig() Config {
	return Config{
		ListenNetwork:     "tcp",
		ListenAddress:     "localhost:9877",
		Framing:           FramingPrefixed,
		ReadChunkSize:     8 << 10,
		RxRingSize:        16 << 10,
		MaxMessageSize:    16 << 20,
		CompressThreshold: 64 << 10,
		PollInterval:      time.Second,
		AcceptBackoff:     500 * time.Millisecond,
		StopTimeout:       time.Second,
		CommandBurst:      1,
	}
}

// withDefaults 为零值字段填默认值
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ListenNetwork == "" {
		c.ListenNetwork = d.ListenNetwork
	}
	if c.ListenAddress == "" {
		c.ListenAddress = d.ListenAddress
	}
	if c.Framing == "" {
		c.Framing = d.Framing
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = d.ReadChunkSize
	}
	if c.RxRingSize <= 0 {
		c.RxRingSize = d.RxRingSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.AcceptBackoff <= 0 {
		c.AcceptBackoff = d.AcceptBackoff
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.CommandBurst <= 0 {
		c.CommandBurst = d.CommandBurst
	}
	return c
}

// Validate 检查配置的取值
func (c Config) Validate() error {
	switch c.Framing {
	case "", FramingLegacy, FramingPrefixed:
	default:
		return fmt.Errorf("server: unknown framing %q", c.Framing)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("server: max_connections must be >= 0")
	}
	if c.CommandsPerSecond < 0 {
		return fmt.Errorf("server: commands_per_second must be >= 0")
	}
	return nil
}

// newFramer 每个连接一个实例
func (c Config) newFramer() protocol.Framer {
	if c.Framing == FramingLegacy {
		return protocol.NewLegacyFramer()
	}
	return protocol.NewPrefixFramer(protocol.PrefixOptions{
		MaxPayload:        c.MaxMessageSize,
		CompressThreshold: c.CompressThreshold,
	})
}
