// Package submitter drives one batch through the relay: preparation,
// a single signature over the relay-issued challenge, and submission.
package submitter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sigweihq/yieldpay/pkg/relay"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// RelayClient is the slice of the relay API the submitter consumes.
type RelayClient interface {
	PrepareCalls(ctx context.Context, from common.Address, calls types.CallBatch, chainID string) (*relay.PreparedCalls, error)
	SendPreparedCalls(ctx context.Context, prepared *relay.PreparedCalls, signature string) (string, error)
}

// Submitter submits call batches for gasless execution. One signature
// authorizes the entire ordered batch; there are never per-call
// signatures, and a rejected submission is never retried here because the
// batch may already sit in the relay's execution queue.
type Submitter struct {
	relay   RelayClient
	signer  relay.Signer
	chainID string
	logger  *slog.Logger
}

// New creates a submitter bound to one chain and one signing identity.
func New(relayClient RelayClient, signer relay.Signer, chainID string, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		relay:   relayClient,
		signer:  signer,
		chainID: chainID,
		logger:  logger,
	}
}

// Submit prepares, signs and sends the batch, returning the relay batch
// identifier on acceptance. The batch is consumed exactly once.
func (s *Submitter) Submit(ctx context.Context, from common.Address, batch types.CallBatch) (string, error) {
	prepared, err := s.relay.PrepareCalls(ctx, from, batch, s.chainID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrRelayPreparation, err)
	}

	signature, err := s.signer.SignDigest(prepared.ChallengeDigest())
	if err != nil {
		// Signer unavailability is a configuration error, not a relay
		// failure.
		return "", fmt.Errorf("failed to sign batch challenge: %w", err)
	}

	batchID, err := s.relay.SendPreparedCalls(ctx, prepared, signature)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrRelaySubmission, err)
	}

	s.logger.Info("batch submitted",
		"from", from.Hex(),
		"calls", len(batch),
		"batchId", batchID)

	return batchID, nil
}
