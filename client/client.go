package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/internal/ring"
	"github.com/legamerdc/liveremote/protocol"
)

var ErrClosed = errors.New("client: closed")

// ResponseError 服务端返回的错误响应
type ResponseError struct {
	Type    string
	Message string
}

func (e *ResponseError) Error() string { return e.Message }

type Option func(*Client)

// WithLegacyFraming 使用无边界 JSON，对应服务端 framing: legacy
func WithLegacyFraming() Option {
	return func(c *Client) { c.legacy = true }
}

// WithCodec 前缀帧模式下的负载编码，默认 JSON
func WithCodec(codec protocol.Codec) Option {
	return func(c *Client) { c.codec = codec }
}

// WithMaxMessageSize 单条响应上限，默认 16 MiB
func WithMaxMessageSize(n int) Option {
	return func(c *Client) { c.maxMsg = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client 一次只允许一个请求在途
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	codec  protocol.Codec
	legacy bool
	maxMsg int
	rx     *ring.Buffer
	closed bool
	log    zerolog.Logger
}

func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return New(nc, opts...), nil
}

// New 包装已建立的连接
func New(nc net.Conn, opts ...Option) *Client {
	c := &Client{conn: nc, codec: protocol.JSON, maxMsg: 16 << 20, log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	if c.legacy {
		c.codec = protocol.JSON
	}
	c.log = c.log.With().Str("component", "client").Logger()
	c.rx = ring.New(8<<10, c.maxMsg+protocol.MaxHeaderSize)
	return c
}

// Do 发送一条命令并等待对应的响应；ctx 的截止时间作用于整次往返
func (c *Client) Do(ctx context.Context, typ string, params map[string]any) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.Response{}, ErrClosed
	}
	cmd := protocol.Command{Type: typ, Params: params}
	var (
		out []byte
		err error
	)
	if c.legacy {
		out, err = protocol.EncodeCommand(protocol.JSON, cmd)
	} else {
		out, err = protocol.EncodeCommandFrame(c.codec, cmd)
	}
	if err != nil {
		return protocol.Response{}, errs.Wrap(err, errs.Encoding, "encode command")
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetDeadline(time.Now()) })
	defer stop()

	c.log.Debug().Str("type", typ).Msg("client: send")
	if _, err := c.conn.Write(out); err != nil {
		return protocol.Response{}, c.transportErr(ctx, err, "write command")
	}
	resp, err := c.read(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return resp, nil
}

// Call 同 Do，错误响应转换为 *ResponseError
func (c *Client) Call(ctx context.Context, typ string, params map[string]any) (any, error) {
	resp, err := c.Do(ctx, typ, params)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ResponseError{Type: typ, Message: resp.Message}
	}
	return resp.Result, nil
}

func (c *Client) read(ctx context.Context) (protocol.Response, error) {
	buf := make([]byte, 8<<10)
	for {
		if resp, ok, err := c.next(); err != nil || ok {
			return resp, err
		}
		n, err := c.conn.Read(buf)
		if n > 0 {
			if _, werr := c.rx.Write(buf[:n]); werr != nil {
				return protocol.Response{}, errs.Newf(errs.Framing, "response exceeds %d bytes", c.maxMsg)
			}
			continue
		}
		if err != nil {
			return protocol.Response{}, c.transportErr(ctx, err, "read response")
		}
	}
}

func (c *Client) next() (protocol.Response, bool, error) {
	if c.rx.Len() == 0 {
		return protocol.Response{}, false, nil
	}
	if c.legacy {
		data := c.rx.Bytes()
		if !json.Valid(data) {
			return protocol.Response{}, false, nil
		}
		c.rx.Reset()
		resp, err := protocol.DecodeResponse(protocol.JSON, data)
		return resp, true, err
	}
	f, n, err := protocol.ParseFrame(c.rx.Bytes(), c.maxMsg)
	if err != nil || n == 0 {
		return protocol.Response{}, false, err
	}
	c.rx.Discard(n)
	codec, err := protocol.CodecFor(f.Content)
	if err != nil {
		return protocol.Response{}, false, err
	}
	resp, err := protocol.DecodeResponse(codec, f.Payload)
	return resp, true, err
}

func (c *Client) transportErr(ctx context.Context, err error, msg string) error {
	if cerr := ctx.Err(); cerr != nil {
		return errs.Wrap(cerr, errs.Transport, msg)
	}
	return errs.Wrap(err, errs.Transport, msg)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Client) String() string {
	return fmt.Sprintf("client(%s)", c.conn.RemoteAddr())
}
