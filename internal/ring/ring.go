// Package ring provides a fixed-capacity ring buffer.
// This package is internal and should not be imported by external projects.
package ring

// Buffer 固定容量环形缓冲区。
// 缓冲区写满后，每次 Append 以 O(1) 淘汰最旧的条目，
// 保证无论追加多少次，内存占用恒定且最新条目总被保留。
type Buffer[T any] struct {
	items []T
	head  int // 最旧条目位置
	size  int
}

// New 创建容量为 capacity 的环形缓冲区（capacity < 1 时取 1）。
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Append 追加一个条目；缓冲区已满时覆盖最旧条目。
func (b *Buffer[T]) Append(item T) {
	if b.size < len(b.items) {
		b.items[(b.head+b.size)%len(b.items)] = item
		b.size++
		return
	}
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
}

// Len 返回当前条目数。
func (b *Buffer[T]) Len() int { return b.size }

// Cap 返回缓冲区容量。
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Last 返回最新追加的条目；缓冲区为空时返回零值和 false。
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// Snapshot 按从旧到新的顺序返回所有条目的副本。
func (b *Buffer[T]) Snapshot() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}
