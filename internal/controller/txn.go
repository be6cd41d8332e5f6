package controller

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts time.Now so preset last_used stamping is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// driverTimeout bounds every hardware/stream driver call made during a command.
const driverTimeout = 2 * time.Second

// txn accumulates the inverse of every hardware/stream effect applied during
// a single apply() call, so a later failure can roll the already-applied
// effects back in reverse order. It is not safe for concurrent use — it is
// only ever touched while the Controller's write lock is held.
type txn struct {
	ctx     context.Context
	effects []func() error
}

// newTxn detaches the txn from ctx's cancellation, so a client disconnect
// does not abort hardware effects already under way; driverTimeout still
// bounds each call.
func newTxn(ctx context.Context) *txn {
	return &txn{ctx: context.WithoutCancel(ctx)}
}

// timeout returns a child context bounded by driverTimeout, and its cancel func.
func (t *txn) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.ctx, driverTimeout)
}

// do runs a forward effect and, if it succeeds, records its inverse for
// rollback. If forward itself fails, nothing is recorded — there is nothing
// to undo. A context.DeadlineExceeded is reported to the caller as-is; the
// caller (Controller methods) is responsible for translating that into
// models.ErrDriverTimeout.
func (t *txn) do(forward func(ctx context.Context) error, inverse func() error) error {
	ctx, cancel := t.timeout()
	defer cancel()
	if err := forward(ctx); err != nil {
		return err
	}
	if inverse != nil {
		t.effects = append(t.effects, inverse)
	}
	return nil
}

// rollback runs every recorded inverse in reverse order, best-effort. It
// returns false if any inverse itself failed (meaning hardware state may now
// disagree with the committed-then-discarded in-memory state).
func (t *txn) rollback() bool {
	ok := true
	for i := len(t.effects) - 1; i >= 0; i-- {
		if err := t.effects[i](); err != nil {
			slog.Error("controller: rollback step failed, hardware state may be inconsistent", "err", err)
			ok = false
		}
	}
	return ok
}
