package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrServerStarted = errors.New("server: already started")
	ErrServerClosed  = errors.New("server: closed")
)

type Option func(*Server)

// WithLogger 设置日志；默认不输出
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server 接受本地 TCP 连接，每个连接一个 goroutine，命令交给 Handler。
// 一个 Server 只能 Start 一次。
type Server struct {
	cfg Config
	h   Handler
	log zerolog.Logger

	mu         sync.Mutex
	ln         net.Listener
	started    bool
	running    atomic.Bool
	cancel     context.CancelFunc
	acceptDone chan struct{}

	conns errgroup.Group
	reg   registry
}

func New(cfg Config, h Handler, opts ...Option) *Server {
	s := &Server{cfg: cfg.withDefaults(), h: h, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("component", "server").Logger()
	if s.cfg.MaxConnections > 0 {
		s.conns.SetLimit(s.cfg.MaxConnections)
	}
	return s
}

// Start 绑定监听地址并启动接受循环后立即返回；绑定失败直接返回给调用方。
// ctx 决定服务器的生命周期上限，Stop 会提前结束它。
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrServerStarted
	}
	ln, err := listen(ctx, s.cfg.ListenNetwork, s.cfg.ListenAddress)
	if err != nil {
		s.log.Error().Err(err).Str("addr", s.cfg.ListenAddress).Msg("server: listen failed")
		return err
	}
	s.started = true
	s.ln = ln
	ctx, s.cancel = context.WithCancel(ctx)
	s.acceptDone = make(chan struct{})
	s.running.Store(true)
	go s.acceptLoop(ctx)
	s.log.Info().Str("addr", ln.Addr().String()).Str("framing", string(s.cfg.Framing)).Msg("server: listening")
	return nil
}

// Addr 返回实际绑定的地址；未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Running 报告接受循环是否仍在工作
func (s *Server) Running() bool { return s.running.Load() }

// Connections 返回仍在服务的连接数
func (s *Server) Connections() int { return len(s.reg.alive()) }

// Stop 关闭监听并通知所有连接退出，最多等待 StopTimeout。
// 超时仍未退出的连接只记录日志后放弃，Stop 不会阻塞超过该时限。
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if !started {
			return nil
		}
		return ErrServerClosed
	}
	var err error
	if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	s.cancel()

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-s.acceptDone:
	case <-timer.C:
		s.log.Warn().Dur("timeout", s.cfg.StopTimeout).Msg("server: accept loop did not exit in time")
		s.abandon()
		return err
	case <-ctx.Done():
		s.abandon()
		return err
	}

	// 接受循环已退出，不会再有新的 conns.Go
	connsDone := make(chan struct{})
	go func() {
		_ = s.conns.Wait()
		close(connsDone)
	}()
	select {
	case <-connsDone:
		s.log.Info().Msg("server: stopped")
	case <-timer.C:
		s.abandon()
	case <-ctx.Done():
		s.abandon()
	}
	return err
}

func (s *Server) abandon() {
	for _, c := range s.reg.alive() {
		s.log.Warn().Str("conn", c.id.String()).Msg("server: abandoning connection that did not exit in time")
	}
}
