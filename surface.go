package liveremote

import (
	"context"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/legamerdc/liveremote/bridge"
	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/router"
	"github.com/legamerdc/liveremote/server"
)

type Option func(*Surface)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Surface) { s.log = l }
}

// WithTable 替换命令表，默认 router.DefaultTable()
func WithTable(t router.Table) Option {
	return func(s *Surface) { s.table = t }
}

// Surface 把命令服务挂到宿主上：挂载时启动监听，卸载时关闭并释放端口。
// sched 必须把任务投递到宿主自己的执行线程。
type Surface struct {
	cfg   Config
	host  host.Facade
	sched bridge.Scheduler
	table router.Table
	log   zerolog.Logger

	mu  sync.Mutex
	srv *server.Server
}

func NewSurface(cfg Config, h host.Facade, sched bridge.Scheduler, opts ...Option) (*Surface, error) {
	if h == nil || sched == nil {
		return nil, ErrInvalidArgument
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Surface{cfg: cfg, host: h, sched: sched, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// OnAttach 启动监听；绑定失败会记录并返回，不重试
func (s *Surface) OnAttach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrAttached
	}
	b := bridge.New(s.sched, s.cfg.Bridge, s.log)
	ropts := []router.Option{router.WithLogger(s.log)}
	if s.table != nil {
		ropts = append(ropts, router.WithTable(s.table))
	}
	r := router.New(s.host, b, ropts...)
	srv := server.New(s.cfg.Server, r, server.WithLogger(s.log))
	if err := srv.Start(ctx); err != nil {
		s.log.Error().Err(err).Msg("surface: failed to start server")
		return err
	}
	s.srv = srv
	s.log.Info().Msgf("Listening for commands on port %d", portOf(srv.Addr()))
	return nil
}

// OnDetach 停止监听并等待连接退出，最多 server.Config.StopTimeout
func (s *Surface) OnDetach(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return ErrDetached
	}
	err := srv.Stop(ctx)
	s.log.Info().Msg("surface: disconnected")
	return err
}

// Addr 返回监听地址；未挂载时为 nil
func (s *Surface) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}
	return s.srv.Addr()
}

func portOf(a net.Addr) int {
	if ta, ok := a.(*net.TCPAddr); ok {
		return ta.Port
	}
	return 0
}
