package bridge

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrLoopStopped = errors.New("bridge: host loop stopped")

// Loop 是参考实现的宿主协作线程：一个锁定 OS 线程的 goroutine，
// 按 FIFO 逐个执行队列中的闭包，也执行宿主自身的工作（Post）与周期性 Tick。
type Loop struct {
	mu      sync.Mutex
	queue   []queued
	closed  bool
	running bool
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}

	tick      func()
	tickEvery time.Duration
	log       zerolog.Logger
}

// queued 排队中的任务；drop 在任务未执行即被丢弃时调用
type queued struct {
	run  func()
	drop func(error)
}

type LoopOption func(*Loop)

// WithTick 每隔 every 在宿主线程上执行一次 fn
func WithTick(every time.Duration, fn func()) LoopOption {
	return func(l *Loop) {
		l.tickEvery = every
		l.tick = fn
	}
}

func WithLoopLogger(log zerolog.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With().Str("component", "host-loop").Logger()
	return l
}

// Schedule 实现 Scheduler
func (l *Loop) Schedule(task func()) error {
	return l.push(queued{run: task})
}

// ScheduleOrDrop 实现 DropScheduler：Loop 关闭时仍在排队的任务以 ErrLoopStopped 调用 dropped
func (l *Loop) ScheduleOrDrop(task func(), dropped func(error)) error {
	return l.push(queued{run: task, drop: dropped})
}

// Post 投递宿主自身的工作，与桥接任务共用同一队列
func (l *Loop) Post(task func()) error {
	return l.push(queued{run: task})
}

func (l *Loop) push(q queued) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, q)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0].run
	l.queue[0] = queued{}
	l.queue = l.queue[1:]
	return task, true
}

// Len 返回排队中的任务数
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Start 在新 goroutine 中运行 Run
func (l *Loop) Start(ctx context.Context) {
	go func() { _ = l.Run(ctx) }()
}

// Run 阻塞执行队列直到 ctx 取消或 Stop；剩余任务不再执行，只通知其 drop。只能调用一次
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	defer l.close()

	var tickC <-chan time.Time
	if l.tick != nil && l.tickEvery > 0 {
		t := time.NewTicker(l.tickEvery)
		defer t.Stop()
		tickC = t.C
	}

	l.log.Debug().Msg("loop: started")
	for {
		if task, ok := l.pop(); ok {
			l.exec(task)
			continue
		}
		select {
		case <-ctx.Done():
			l.log.Debug().Msg("loop: stopped")
			return ctx.Err()
		case <-l.quit:
			l.log.Debug().Msg("loop: stopped")
			return nil
		case <-l.wake:
		case <-tickC:
			l.exec(l.tick)
		}
	}
}

// Stop 拒绝新任务并让 Run 返回；等待 Run 退出
func (l *Loop) Stop() {
	if l.close() {
		close(l.quit)
	}
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if running {
		<-l.done
	}
}

func (l *Loop) close() bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.closed = true
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	if len(pending) > 0 {
		l.log.Warn().Int("dropped", len(pending)).Msg("loop: closed with pending tasks")
	}
	for _, q := range pending {
		if q.drop != nil {
			q.drop(ErrLoopStopped)
		}
	}
	return true
}

// exec 宿主线程不能因单个任务崩溃
func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("loop: task panicked")
		}
	}()
	task()
}
