package service

import (
	"context"
	"sync"
)

// StoreTx provides the transactional boundary privileged procedures run
// inside. Implementations wrap a database transaction or, in memory, a
// coarse lock. The context handed to fn carries the transaction so stores
// enlist automatically.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// inMemoryStoreTx serializes units of work behind a mutex. It cannot roll
// anything back; it exists so unit tests and memory-backed wiring satisfy
// the same interface as the Postgres runner.
type inMemoryStoreTx struct {
	mu sync.Mutex
}

func newInMemoryStoreTx() *inMemoryStoreTx {
	return &inMemoryStoreTx{}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
