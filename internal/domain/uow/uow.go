// Package uow declares the transactional boundary used by multi-write
// workflows.
package uow

import "context"

// UnitOfWork runs fn atomically. Repositories called with the context passed
// to fn take part in the same transaction; a non-nil error from fn rolls
// every write back.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapts a function to UnitOfWork.
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

// RunInTx calls f.
func (f Func) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}
