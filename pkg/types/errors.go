package types

import "errors"

// Payment error taxonomy. Fatal errors abort the attempt before or during
// relay interaction; confirmation timeout and persistence failure are
// deliberately absent because they degrade to "pending" and a log line
// rather than failing the payment.
var (
	// ErrUnauthenticated means the request carried no resolvable user.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrWalletNotInitialized means the sender or recipient has no smart
	// account yet.
	ErrWalletNotInitialized = errors.New("wallet not initialized")

	// ErrInsufficientBalance means the sender's combined balance across
	// both representations is below the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerRead means a balance or allowance read failed. Transient;
	// the payment is aborted rather than assuming a zero balance.
	ErrLedgerRead = errors.New("ledger read failed")

	// ErrRelayPreparation means the relay rejected the batch during
	// preparation.
	ErrRelayPreparation = errors.New("relay preparation failed")

	// ErrRelaySubmission means the relay rejected the signed package.
	// Never retried automatically: resubmitting an already-queued batch
	// risks a double spend.
	ErrRelaySubmission = errors.New("relay submission failed")
)
