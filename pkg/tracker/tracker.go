// Package tracker polls the relay for execution receipts within a bounded
// attempt and wall-clock budget. Results are advisory: a batch that did
// not confirm within the budget may still settle later.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// StatusClient is the slice of the relay API the tracker consumes.
type StatusClient interface {
	GetCallsStatus(ctx context.Context, batchID string) (*types.BatchStatus, error)
}

// Tracker polls at a fixed interval. No exponential backoff: the relay
// status endpoint is cheap and the budget is the real bound.
type Tracker struct {
	relay       StatusClient
	interval    time.Duration
	maxAttempts int
	budget      time.Duration
	logger      *slog.Logger
}

// New creates a tracker with the default polling budget.
func New(relayClient StatusClient, logger *slog.Logger) *Tracker {
	return NewWithBudget(relayClient,
		constants.ConfirmationPollInterval,
		constants.ConfirmationMaxAttempts,
		constants.ConfirmationBudget,
		logger)
}

// NewWithBudget creates a tracker with an explicit polling budget.
func NewWithBudget(relayClient StatusClient, interval time.Duration, maxAttempts int, budget time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		relay:       relayClient,
		interval:    interval,
		maxAttempts: maxAttempts,
		budget:      budget,
		logger:      logger,
	}
}

// Await polls until a receipt with a settlement hash appears, the attempt
// count is exhausted, or the wall-clock budget elapses, whichever comes
// first. Timeout is not an error; the caller gets an unresolved
// confirmation and persists the pending sentinel. The hash is taken from
// the last receipt because the final call in a batch is the user-visible
// transfer.
func (t *Tracker) Await(ctx context.Context, batchID string) types.Confirmation {
	deadline := time.Now().Add(t.budget)

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		status, err := t.relay.GetCallsStatus(ctx, batchID)
		if err != nil {
			t.logger.Warn("status poll failed", "batchId", batchID, "attempt", attempt, "error", err)
			return types.Confirmation{}
		}

		t.logger.Info("status poll",
			"batchId", batchID,
			"attempt", attempt,
			"status", status.Status,
			"receipts", len(status.Receipts))

		if len(status.Receipts) > 0 {
			last := status.Receipts[len(status.Receipts)-1]
			if last.TransactionHash != "" {
				return types.Confirmation{
					TransactionHash: last.TransactionHash,
					Resolved:        true,
				}
			}
		}

		// Terminal status without receipts: further polling cannot
		// produce a hash.
		if status.Status == "CONFIRMED" {
			return types.Confirmation{}
		}

		if time.Now().Add(t.interval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return types.Confirmation{}
		case <-time.After(t.interval):
		}
	}

	t.logger.Info("confirmation budget exhausted, leaving batch pending", "batchId", batchID)
	return types.Confirmation{}
}
