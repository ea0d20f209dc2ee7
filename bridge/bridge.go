// Package bridge 把闭包投递到宿主的协作线程执行，并在有限时间内同步等待结果。
package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/legamerdc/liveremote/internal/errs"
)

// TimeoutMessage 桥接超时时返回给客户端的消息
const TimeoutMessage = "Timeout waiting for operation to complete"

// Scheduler 为宿主提供的调度原语：FIFO，逐个执行到完成。
//
//go:generate mockgen -package=bridge -destination=mock_scheduler_test.go github.com/legamerdc/liveremote/bridge Scheduler
type Scheduler interface {
	Schedule(task func()) error
}

// DropScheduler 可选扩展：调度器关闭时通知仍在排队、未执行的任务，
// 让等待方立即返回而不是等到超时。
type DropScheduler interface {
	ScheduleOrDrop(task func(), dropped func(error)) error
}

type Config struct {
	// Timeout 等待宿主线程的上限，默认 10s
	Timeout time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

const (
	statePending int32 = iota
	stateFulfilled
	stateAbandoned
)

type outcome struct {
	value any
	err   error
}

// PendingTask 为一次跨线程调用的交接点。
// 结果槽容量为 1，宿主线程写入永不阻塞；超时后到达的结果被丢弃。
type PendingTask struct {
	ID      uuid.UUID
	Created time.Time

	result chan outcome
	state  atomic.Int32
}

func newPendingTask() *PendingTask {
	return &PendingTask{
		ID:      uuid.New(),
		Created: time.Now(),
		result:  make(chan outcome, 1),
	}
}

// fulfill 由宿主线程调用一次；返回 false 表示等待方已放弃
func (p *PendingTask) fulfill(o outcome) bool {
	p.result <- o
	return p.state.CompareAndSwap(statePending, stateFulfilled)
}

// abandon 由等待方调用；返回 false 表示结果已经写入
func (p *PendingTask) abandon() bool {
	return p.state.CompareAndSwap(statePending, stateAbandoned)
}

// Bridge 同步桥：Submit 阻塞调用方直到闭包在宿主线程完成或超时。
type Bridge struct {
	sched Scheduler
	cfg   Config
	log   zerolog.Logger
}

func New(sched Scheduler, cfg Config, log zerolog.Logger) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Bridge{
		sched: sched,
		cfg:   cfg,
		log:   log.With().Str("component", "bridge").Logger(),
	}
}

func (b *Bridge) Timeout() time.Duration { return b.cfg.Timeout }

// Submit 将 fn 投递到宿主线程并等待结果。
// 超时返回 BridgeTimeout 错误，但 fn 不会被取消，仍可能稍后执行；其结果被丢弃。
// fn 中的 panic 在宿主线程内被捕获并作为 HostOperation 错误返回。
func (b *Bridge) Submit(ctx context.Context, fn func() (any, error)) (any, error) {
	task := newPendingTask()
	log := b.log.With().Str("task", task.ID.String()).Logger()

	exec := func() {
		o := run(fn)
		if !task.fulfill(o) {
			metricLateResults.Inc()
			log.Warn().
				Dur("elapsed", time.Since(task.Created)).
				AnErr("result_err", o.err).
				Msg("bridge: discarding result of abandoned task")
		}
	}
	var err error
	if ds, ok := b.sched.(DropScheduler); ok {
		err = ds.ScheduleOrDrop(exec, func(reason error) {
			log.Debug().Err(reason).Msg("bridge: task dropped before it ran")
			task.fulfill(outcome{err: errs.Wrap(reason, errs.HostOperation, "operation dropped before it ran")})
		})
	} else {
		err = b.sched.Schedule(exec)
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.HostOperation, "failed to schedule operation")
	}

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()

	select {
	case o := <-task.result:
		metricBridgeWait.Observe(time.Since(task.Created).Seconds())
		return o.value, o.err
	case <-timer.C:
		if !task.abandon() {
			o := <-task.result
			return o.value, o.err
		}
		metricBridgeTimeouts.Inc()
		log.Warn().Dur("timeout", b.cfg.Timeout).Msg("bridge: task timed out")
		return nil, errs.New(errs.BridgeTimeout, TimeoutMessage)
	case <-ctx.Done():
		if !task.abandon() {
			o := <-task.result
			return o.value, o.err
		}
		return nil, errs.Wrap(ctx.Err(), errs.Transport, "request cancelled")
	}
}

func run(fn func() (any, error)) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: errs.New(errs.HostOperation, fmt.Sprint(r)).WithContext("panic", true)}
		}
	}()
	v, err := fn()
	return outcome{value: v, err: err}
}
