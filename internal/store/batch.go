package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FlushPolicy decides what happens when flushing a write batch fails.
type FlushPolicy string

const (
	// FlushRetry retries the batch a fixed number of times before failing
	// the stage. Default.
	FlushRetry FlushPolicy = "retry"
	// FlushDrop logs the failure and loses the batch; indexing continues.
	FlushDrop FlushPolicy = "drop"
	// FlushFail fails the stage on the first flush error.
	FlushFail FlushPolicy = "fail"
)

const (
	flushAttempts = 3
	flushBackoff  = 100 * time.Millisecond
)

// ParseFlushPolicy validates a policy name, defaulting empty to FlushRetry.
func ParseFlushPolicy(name string) (FlushPolicy, error) {
	switch FlushPolicy(name) {
	case "":
		return FlushRetry, nil
	case FlushRetry, FlushDrop, FlushFail:
		return FlushPolicy(name), nil
	}
	return "", fmt.Errorf("unknown flush policy %q (want retry, drop or fail)", name)
}

// Batcher buffers rows and flushes them in fixed-size batches through a
// single flush function. Safe for concurrent use by pipeline workers.
type Batcher[T any] struct {
	mu      sync.Mutex
	size    int
	policy  FlushPolicy
	flush   func([]T) error
	buf     []T
	dropped int
}

// NewBatcher returns a batcher flushing every size rows with the given
// failure policy.
func NewBatcher[T any](size int, policy FlushPolicy, flush func([]T) error) *Batcher[T] {
	if size <= 0 {
		size = 1000
	}
	if policy == "" {
		policy = FlushRetry
	}
	return &Batcher[T]{
		size:   size,
		policy: policy,
		flush:  flush,
		buf:    make([]T, 0, size),
	}
}

// Add buffers one row, flushing if the batch is full. The returned error is
// non-nil only when the policy declares the flush failure fatal.
func (b *Batcher[T]) Add(row T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, row)
	if len(b.buf) < b.size {
		return nil
	}
	return b.flushLocked()
}

// Flush writes out any buffered rows.
func (b *Batcher[T]) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// Dropped reports how many rows were lost to the drop policy.
func (b *Batcher[T]) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Batcher[T]) flushLocked() error {
	if len(b.buf) == 0 {
		return nil
	}
	batch := b.buf
	b.buf = make([]T, 0, b.size)

	err := b.flush(batch)
	if err == nil {
		return nil
	}

	switch b.policy {
	case FlushDrop:
		b.dropped += len(batch)
		slog.Error("batch flush failed, dropping batch", "rows", len(batch), "error", err)
		return nil
	case FlushFail:
		return fmt.Errorf("flush batch of %d rows: %w", len(batch), err)
	default: // FlushRetry
		for attempt := 2; attempt <= flushAttempts; attempt++ {
			time.Sleep(time.Duration(attempt-1) * flushBackoff)
			if err = b.flush(batch); err == nil {
				slog.Warn("batch flush succeeded after retry", "rows", len(batch), "attempt", attempt)
				return nil
			}
		}
		return fmt.Errorf("flush batch of %d rows after %d attempts: %w", len(batch), flushAttempts, err)
	}
}
