// Package pacing provides cancellable fixed-delay waits.
//
// The push pipeline deliberately paces itself between chunks, between files,
// and after triggering asynchronous platform jobs. Those waits used to be
// plain sleeps; a plain sleep cannot be interrupted, which makes shutdown
// slow and tests impossible to run in real time. Wait is the seam: production
// code uses pacing.Wait, tests inject a recording Func.
package pacing

import (
	"context"
	"time"
)

// Func is the injectable wait seam. Implementations must return promptly
// with ctx.Err() once the context is cancelled.
type Func func(ctx context.Context, d time.Duration) error

// Wait blocks for d or until ctx is done, whichever comes first.
//
// Edge cases:
//   - d <= 0 returns immediately (after checking ctx).
//   - A cancelled ctx always wins over the timer.
func Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
