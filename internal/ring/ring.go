package ring

import (
	"errors"
)

var ErrTooLarge = errors.New("ring: write too large")

// Buffer 是单连接私有的环形接收缓冲，不做并发保护。
// 容量按 2 的幂增长，直到 limit；超过 limit 的写入返回 ErrTooLarge。

type Buffer struct {
	buf      []byte
	mask     int
	readPos  int
	writePos int
	limit    int
}

// New 返回初始容量为 initial、最大容量为 limit 的缓冲（均向上取整到 2 的幂）。
// limit <= 0 表示与 initial 相同，不增长。
func New(initial, limit int) *Buffer {
	c := pow2(initial)
	if limit <= 0 {
		limit = c
	}
	return &Buffer{buf: make([]byte, c), mask: c - 1, limit: limit}
}

func pow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) Len() int { return b.writePos - b.readPos }

func (b *Buffer) Free() int { return b.Cap() - b.Len() }

// Limit 返回允许积压的最大字节数
func (b *Buffer) Limit() int { return b.limit }

// Write 追加数据；空间不足时扩容，积压超过 limit 返回 ErrTooLarge 且不写入。
func (b *Buffer) Write(p []byte) (int, error) {
	need := b.Len() + len(p)
	if need > b.limit {
		return 0, ErrTooLarge
	}
	if len(p) > b.Free() {
		b.grow(need)
	}
	n := len(p)
	start := b.writePos & b.mask
	end := start + n
	if end <= len(b.buf) {
		copy(b.buf[start:end], p)
	} else {
		l := len(b.buf) - start
		copy(b.buf[start:], p[:l])
		copy(b.buf[:end-l], p[l:])
	}
	b.writePos += n
	return n, nil
}

// grow 重新分配为连续布局，读指针归零
func (b *Buffer) grow(need int) {
	c := pow2(need)
	nb := make([]byte, c)
	ln := b.Len()
	copy(nb, b.Peek(ln))
	b.buf = nb
	b.mask = c - 1
	b.readPos = 0
	b.writePos = ln
}

// Peek 读取最多 n 字节但不前进读指针。
// 返回的切片可能直接引用内部存储，下一次 Write 前有效。
func (b *Buffer) Peek(n int) []byte {
	if n <= 0 {
		return nil
	}
	ln := b.Len()
	if n > ln {
		n = ln
	}
	start := b.readPos & b.mask
	end := start + n
	if end <= len(b.buf) {
		return b.buf[start:end]
	}
	// 分段视图需要拷贝为连续切片
	buf := make([]byte, n)
	l := len(b.buf) - start
	copy(buf[:l], b.buf[start:])
	copy(buf[l:], b.buf[:end-l])
	return buf
}

// Bytes 返回全部未读数据的连续视图
func (b *Buffer) Bytes() []byte { return b.Peek(b.Len()) }

// Discard 前进读指针。
func (b *Buffer) Discard(n int) int {
	ln := b.Len()
	if n > ln {
		n = ln
	}
	b.readPos += n
	if b.readPos == b.writePos {
		b.readPos, b.writePos = 0, 0
	}
	return n
}

// Reset 丢弃全部未读数据
func (b *Buffer) Reset() {
	b.readPos, b.writePos = 0, 0
}
