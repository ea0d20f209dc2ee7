//go:build unix

package netutil

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func SetReuseAddr(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, v)
}

func SetNoDelay(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

func SetKeepAlive(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v)
}

// ListenControl 在 bind 之前设置 SO_REUSEADDR，供 net.ListenConfig.Control 使用。
// 宿主频繁重载脚本时，旧监听残留的 TIME_WAIT 不应阻止重新绑定。
func ListenControl(network, address string, rc syscall.RawConn) error {
	var opErr error
	err := rc.Control(func(fd uintptr) {
		opErr = SetReuseAddr(int(fd), true)
	})
	if err != nil {
		return err
	}
	return opErr
}

// TuneConn 对已接受的 TCP 连接关闭 Nagle 并开启 keepalive。
// 非 TCP 连接（如 net.Pipe）直接忽略。
func TuneConn(c net.Conn) error {
	sc, ok := c.(interface{ SyscallConn() (syscall.RawConn, error) })
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = rc.Control(func(fd uintptr) {
		if e := SetNoDelay(int(fd), true); e != nil {
			opErr = e
			return
		}
		opErr = SetKeepAlive(int(fd), true)
	})
	if err != nil {
		return err
	}
	return opErr
}
