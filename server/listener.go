package server

import (
	"context"
	"net"

	"github.com/legamerdc/liveremote/internal/netutil"
)

// listen 在 bind 前设置 SO_REUSEADDR，重新挂载时可立即复用端口
func listen(ctx context.Context, network, address string) (net.Listener, error) {
	lc := net.ListenConfig{Control: netutil.ListenControl}
	return lc.Listen(ctx, network, address)
}
