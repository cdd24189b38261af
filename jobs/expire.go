// Package jobs runs background maintenance next to the HTTP server.
package jobs

import (
	"context"
	"time"

	"seamless/reconcile"

	"go.uber.org/zap"
)

const expireBatch = 200

type expirer interface {
	Provider() string
	ExpireWaiting(ctx context.Context, maxAge time.Duration, limit int) (int, error)
}

var _ expirer = (*reconcile.Engine)(nil)

// StartWaitingExpiry voids reserved bets older than maxAge on every tick
// until ctx is done. The returned channel is closed once the loop exits.
func StartWaitingExpiry[E expirer](ctx context.Context, engines []E, every, maxAge time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(every)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expireAll(ctx, engines, maxAge)
			}
		}
	}()
	return done
}

func expireAll[E expirer](ctx context.Context, engines []E, maxAge time.Duration) {
	for _, e := range engines {
		n, err := e.ExpireWaiting(ctx, maxAge, expireBatch)
		if err != nil {
			zap.L().Error("Failed to expire waiting bets", zap.String("provider", e.Provider()), zap.Error(err))
			continue
		}
		if n > 0 {
			zap.L().Info("Expired waiting bets", zap.String("provider", e.Provider()), zap.Int("count", n))
		}
	}
}
