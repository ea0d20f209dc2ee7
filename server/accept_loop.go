package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/legamerdc/liveremote/internal/netutil"
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// acceptLoop 每次 Accept 前设置超时，超时即重新检查运行标志，无需额外唤醒机制
func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.acceptDone)
	dl, _ := s.ln.(deadliner)
	for s.running.Load() && ctx.Err() == nil {
		if dl != nil {
			_ = dl.SetDeadline(time.Now().Add(s.cfg.PollInterval))
		}
		nc, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.log.Warn().Err(err).Msg("server: accept failed")
			select {
			case <-time.After(s.cfg.AcceptBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		s.handle(ctx, nc)
	}
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	if err := netutil.TuneConn(nc); err != nil {
		s.log.Debug().Err(err).Msg("server: tune conn failed")
	}
	c := newConnection(s, nc)
	if !s.conns.TryGo(func() error {
		c.serve(ctx)
		return nil
	}) {
		metricRejected.Inc()
		s.log.Warn().Str("remote", nc.RemoteAddr().String()).Int("limit", s.cfg.MaxConnections).
			Msg("server: connection limit reached, closing")
		_ = nc.Close()
		return
	}
	metricAccepted.Inc()
	s.reg.add(c)
}
