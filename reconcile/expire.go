package reconcile

import (
	"context"
	"errors"
	"time"

	"seamless/models"

	"go.uber.org/zap"
)

// ExpireWaiting voids reserved bets that were never confirmed within maxAge.
// A waiting bet never reached the ledger, so voiding it makes no ledger call.
// It returns how many bets were voided.
func (e *Engine) ExpireWaiting(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	rows, err := e.store.Stale(ctx, models.FlagWaiting, e.opts.Now().Add(-maxAge), limit)
	if err != nil {
		return 0, err
	}

	voided := 0
	for _, row := range rows {
		_, err := e.Cancel(ctx, CancelRequest{
			PlayerID:  row.PlayerID,
			Reference: row.ExternalRef,
			Metadata:  map[string]any{"reason": "expired"},
		})
		switch {
		case err == nil:
			voided++
		case errors.Is(err, ErrDuplicate), errors.Is(err, ErrIneligibleState):
			// confirmed or cancelled by the provider in the meantime
		default:
			zap.L().Warn("Failed to expire waiting bet",
				zap.String("provider", e.provider),
				zap.String("reference", row.ExternalRef),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return voided, ctx.Err()
		}
	}
	return voided, nil
}
