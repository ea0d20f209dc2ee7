//go:build !unix

package netutil

import (
	"net"
	"syscall"
)

// 非 unix 平台使用运行时默认的套接字选项

func ListenControl(network, address string, rc syscall.RawConn) error { return nil }

func TuneConn(c net.Conn) error {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		return tc.SetKeepAlive(true)
	}
	return nil
}
