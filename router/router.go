// Package router 将命令按类型分派到宿主操作：只读命令在连接 goroutine 上直接执行，
// 修改类命令经 bridge 投递到宿主线程。
package router

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/protocol"
)

// Class 命令的执行位置
type Class int

const (
	Direct Class = iota
	Bridged
)

func (c Class) String() string {
	if c == Bridged {
		return "bridged"
	}
	return "direct"
}

// HandlerFunc 执行一条命令；返回值作为 result 编码
type HandlerFunc func(ctx context.Context, h host.Facade, p *Params) (any, error)

// Route 为分类表中的一项
type Route struct {
	Class   Class
	Handler HandlerFunc
}

// Table 命令类型到路由的静态映射
type Table map[string]Route

// Types 返回已注册的命令类型（排序）
func (t Table) Types() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Submitter 由 bridge.Bridge 实现
type Submitter interface {
	Submit(ctx context.Context, fn func() (any, error)) (any, error)
}

type Router struct {
	host   host.Facade
	bridge Submitter
	table  Table
	log    zerolog.Logger
}

type Option func(*Router)

// WithTable 替换默认命令表
func WithTable(t Table) Option { return func(r *Router) { r.table = t } }

func WithLogger(log zerolog.Logger) Option { return func(r *Router) { r.log = log } }

func New(h host.Facade, b Submitter, opts ...Option) *Router {
	r := &Router{host: h, bridge: b, table: DefaultTable(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", "router").Logger()
	return r
}

// Classify 返回命令类型的分类；未知类型 ok=false
func (r *Router) Classify(tag string) (Class, bool) {
	rt, ok := r.table[tag]
	return rt.Class, ok
}

// Dispatch 执行命令并返回唯一的响应，不向外抛出 panic
func (r *Router) Dispatch(ctx context.Context, cmd protocol.Command) protocol.Response {
	rt, ok := r.table[cmd.Type]
	if !ok {
		metricCommands.WithLabelValues("unknown", "error").Inc()
		err := errs.New(errs.UnknownCommand, "Unknown command: "+cmd.Type)
		r.log.Warn().Str("type", cmd.Type).Msg("router: unknown command")
		return protocol.FailureFrom(err)
	}

	ctx = r.log.With().Str("type", cmd.Type).Logger().WithContext(ctx)
	p := NewParams(cmd.Params)
	var (
		result any
		err    error
	)
	switch rt.Class {
	case Bridged:
		result, err = r.bridge.Submit(ctx, func() (any, error) {
			return invoke(ctx, rt.Handler, r.host, p)
		})
	default:
		result, err = invoke(ctx, rt.Handler, r.host, p)
	}

	if err != nil {
		metricCommands.WithLabelValues(cmd.Type, "error").Inc()
		r.log.Warn().
			Str("type", cmd.Type).
			Str("class", rt.Class.String()).
			Str("code", string(errs.CodeOf(err))).
			Err(err).
			Msg("router: command failed")
		return protocol.FailureFrom(err)
	}
	metricCommands.WithLabelValues(cmd.Type, "success").Inc()
	r.log.Debug().Str("type", cmd.Type).Str("class", rt.Class.String()).Msg("router: command done")
	return protocol.Success(result)
}

// invoke 执行处理函数；参数校验错误优先于处理结果
func invoke(ctx context.Context, fn HandlerFunc, h host.Facade, p *Params) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, errs.New(errs.Internal, fmt.Sprint(rec)).WithContext("panic", true)
		}
	}()
	result, err = fn(ctx, h, p)
	if perr := p.Err(); perr != nil {
		return nil, perr
	}
	return result, err
}
