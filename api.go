package liveremote

import (
	"github.com/legamerdc/liveremote/bridge"
	"github.com/legamerdc/liveremote/server"
)

// Config 为控制面的整体配置
type Config struct {
	Server server.Config `yaml:"server"`
	Bridge bridge.Config `yaml:"bridge"`
	// LogLevel zerolog 级别名：debug / info / warn / error
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig 提供一组可工作的默认值：localhost:9877，前缀帧，桥接超时 10s
func DefaultConfig() Config {
	return Config{
		Server:   server.DefaultConfig(),
		Bridge:   bridge.DefaultConfig(),
		LogLevel: "info",
	}
}

// Validate 检查各部分配置
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Bridge.Timeout < 0 {
		return ErrInvalidArgument
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
