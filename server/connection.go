package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/internal/ring"
	"github.com/legamerdc/liveremote/protocol"
)

// connection 单个客户端的读-分帧-分发-回写循环。rx 只属于本连接。
type connection struct {
	id      uuid.UUID
	conn    net.Conn
	h       Handler
	rx      *ring.Buffer
	framer  protocol.Framer
	limiter *rate.Limiter
	chunk   int
	maxMsg  int
	log     zerolog.Logger
	done    chan struct{}
}

func newConnection(s *Server, nc net.Conn) *connection {
	return newConn(s.cfg, s.h, nc, s.log)
}

func newConn(cfg Config, h Handler, nc net.Conn, log zerolog.Logger) *connection {
	cfg = cfg.withDefaults()
	id := uuid.New()
	limit := cfg.MaxMessageSize
	if cfg.Framing == FramingPrefixed {
		limit += protocol.MaxHeaderSize
	}
	c := &connection{
		id:     id,
		conn:   nc,
		h:      h,
		rx:     ring.New(min(cfg.RxRingSize, limit), limit),
		framer: cfg.newFramer(),
		chunk:  cfg.ReadChunkSize,
		maxMsg: cfg.MaxMessageSize,
		log:    log.With().Str("conn", id.String()).Logger(),
		done:   make(chan struct{}),
	}
	if cfg.CommandsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.CommandsPerSecond), cfg.CommandBurst)
	}
	return c
}

func (c *connection) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// serve 阻塞直到对端关闭、出错或 ctx 取消；退出时总会关闭套接字
func (c *connection) serve(ctx context.Context) {
	defer close(c.done)
	defer c.conn.Close()
	// ctx 取消时关闭套接字以打断阻塞中的 Read
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	metricActiveConns.Inc()
	defer metricActiveConns.Dec()

	ctx = c.log.WithContext(ctx)
	c.log.Debug().Str("remote", remoteAddr(c.conn)).Msg("server: connection opened")

	buf := make([]byte, c.chunk)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if _, werr := c.rx.Write(buf[:n]); werr != nil {
				metricFramingErrors.Inc()
				c.log.Warn().Int("limit", c.maxMsg).Msg("server: message too large, closing")
				_ = c.reply(nil, protocol.FailureFrom(errs.Newf(errs.Framing, "message exceeds %d bytes", c.maxMsg)))
				return
			}
			if !c.drain(ctx) {
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.log.Debug().Msg("server: connection closed by peer")
			case ctx.Err() != nil:
				c.log.Debug().Msg("server: connection closed on shutdown")
			default:
				c.log.Warn().Err(err).Msg("server: read failed")
			}
			return
		}
	}
}

// drain 依次处理缓冲中所有完整的消息；返回 false 表示连接应关闭
func (c *connection) drain(ctx context.Context) bool {
	for {
		msg, ok, err := c.framer.Next(c.rx)
		if err != nil {
			metricFramingErrors.Inc()
			c.log.Warn().Err(err).Msg("server: framing error, closing")
			_ = c.reply(msg.Codec, protocol.FailureFrom(err))
			return false
		}
		if !ok {
			return true
		}
		var resp protocol.Response
		if msg.Err != nil {
			c.log.Debug().Err(msg.Err).Msg("server: rejected payload")
			resp = protocol.FailureFrom(msg.Err)
		} else {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return false
				}
			}
			resp = c.h.Dispatch(ctx, msg.Command)
		}
		if err := c.reply(msg.Codec, resp); err != nil {
			c.log.Warn().Err(err).Msg("server: write failed")
			return false
		}
	}
}

func (c *connection) reply(codec protocol.Codec, r protocol.Response) error {
	b, err := c.framer.Encode(codec, r)
	if err != nil {
		return errs.Wrap(err, errs.Encoding, "encode response")
	}
	if _, err := c.conn.Write(b); err != nil {
		return errs.Wrap(err, errs.Transport, "write response")
	}
	return nil
}

func remoteAddr(nc net.Conn) string {
	if a := nc.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
