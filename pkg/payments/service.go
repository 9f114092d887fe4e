// Package payments is the orchestration core: it reads a sender's split
// balance, plans any needed conversion, builds the call batch, submits it
// through the relay under a single signature, and resolves the settlement
// hash in the background.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sigweihq/yieldpay/pkg/batch"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/encoders"
	"github.com/sigweihq/yieldpay/pkg/ledger"
	"github.com/sigweihq/yieldpay/pkg/metrics"
	"github.com/sigweihq/yieldpay/pkg/planner"
	"github.com/sigweihq/yieldpay/pkg/relay"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// BatchSubmitter submits one built batch for gasless execution.
type BatchSubmitter interface {
	Submit(ctx context.Context, from common.Address, calls types.CallBatch) (string, error)
}

// ConfirmationTracker resolves the settlement hash of a submitted batch,
// best-effort within its polling budget.
type ConfirmationTracker interface {
	Await(ctx context.Context, batchID string) types.Confirmation
}

// AccountRequester creates or re-derives smart accounts on the relay.
type AccountRequester interface {
	RequestAccount(ctx context.Context, signerAddress common.Address, salt string) (string, error)
}

// ProfileStore is the slice of profile persistence the service needs.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	SetSmartAccount(ctx context.Context, userID uuid.UUID, address string) error
	SetYieldPreference(ctx context.Context, userID uuid.UUID, wantsYield bool) error
	MarkWelcomeBonus(ctx context.Context, userID uuid.UUID) error
}

// RecordStore persists transaction records. Write failures are logged and
// swallowed; they never fail an otherwise-successful payment.
type RecordStore interface {
	Insert(ctx context.Context, record *types.TransactionRecord) error
}

// Service composes the payment components. One logical flow per request,
// no shared mutable state between concurrent requests: every request reads
// fresh balances and builds its own batch.
type Service struct {
	reader        ledger.Reader
	builder       *batch.Builder
	submitter     BatchSubmitter
	tracker       ConfirmationTracker
	accounts      AccountRequester
	profiles      ProfileStore
	records       RecordStore
	signerAddress common.Address
	treasury      common.Address
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tasks         *Supervisor
}

// Config wires the service's collaborators.
type Config struct {
	Reader        ledger.Reader
	Builder       *batch.Builder
	Submitter     BatchSubmitter
	Tracker       ConfirmationTracker
	Accounts      AccountRequester
	Profiles      ProfileStore
	Records       RecordStore
	SignerAddress common.Address
	Treasury      common.Address
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = batch.NewBuilder()
	}
	return &Service{
		reader:        cfg.Reader,
		builder:       builder,
		submitter:     cfg.Submitter,
		tracker:       cfg.Tracker,
		accounts:      cfg.Accounts,
		profiles:      cfg.Profiles,
		records:       cfg.Records,
		signerAddress: cfg.SignerAddress,
		treasury:      cfg.Treasury,
		metrics:       cfg.Metrics,
		logger:        logger,
		tasks:         NewSupervisor(logger),
	}
}

// Close waits for in-flight background resolution tasks.
func (s *Service) Close() {
	s.tasks.Wait()
}

// SendPaymentRequest is one user-initiated payment.
type SendPaymentRequest struct {
	RecipientUserID uuid.UUID
	Amount          string // decimal USDC amount, e.g. "12.50"
	Message         string
}

// SendPaymentResult is returned as soon as the relay accepts the batch.
// TransactionHash stays empty here; it is resolved in the background and
// persisted with the transaction record.
type SendPaymentResult struct {
	BatchID string `json:"callsId"`
}

// SendPayment orchestrates one payment end to end. It returns once the
// batch is accepted into the relay's execution queue; settlement is
// observed by a detached task.
func (s *Service) SendPayment(ctx context.Context, senderUserID uuid.UUID, req *SendPaymentRequest) (*SendPaymentResult, error) {
	amount, err := types.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	sender, err := s.profiles.GetByUserID(ctx, senderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender profile: %w", err)
	}
	if !sender.HasWallet() {
		return nil, fmt.Errorf("%w: sender", types.ErrWalletNotInitialized)
	}

	recipient, err := s.profiles.GetByUserID(ctx, req.RecipientUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient profile: %w", err)
	}
	if !recipient.HasWallet() {
		return nil, fmt.Errorf("%w: recipient", types.ErrWalletNotInitialized)
	}

	from := common.HexToAddress(sender.SmartAccountAddress)
	to := common.HexToAddress(recipient.SmartAccountAddress)

	balances, err := s.reader.Balances(ctx, from)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(balances, amount, recipient.IsEarningYield)
	if err != nil {
		return nil, err
	}

	calls, err := s.buildPaymentBatch(ctx, plan, amount, from, to)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment planned",
		"from", sender.Username,
		"to", recipient.Username,
		"amount", types.FormatAmount(amount),
		"target", plan.Target.String(),
		"shortfall", types.FormatAmount(plan.Shortfall),
		"calls", len(calls))

	start := time.Now()
	batchID, err := s.submitter.Submit(ctx, from, calls)
	if err != nil {
		s.metrics.IncPaymentsFailed()
		return nil, err
	}
	s.metrics.IncPaymentsSubmitted()
	s.metrics.ObservePaymentDuration(time.Since(start).Seconds())

	s.resolveInBackground(batchID, senderUserID, req.RecipientUserID, amount, req.Message)

	return &SendPaymentResult{BatchID: batchID}, nil
}

// buildPaymentBatch reads the allowance only when the plan converts into
// the yield representation, then assembles the ordered batch.
func (s *Service) buildPaymentBatch(ctx context.Context, plan *types.ConversionPlan, amount *big.Int, from, to common.Address) (types.CallBatch, error) {
	var allowance *big.Int
	if plan.NeedsConversion() && plan.Target == types.RepresentationYield {
		var err error
		allowance, err = s.reader.Allowance(ctx, from, s.builder.Pool())
		if err != nil {
			return nil, err
		}
	}

	return s.builder.BuildPayment(plan, amount, from, to, allowance)
}

// resolveInBackground polls for the settlement hash and writes the
// transaction record exactly once, with the pending sentinel when the
// polling budget elapses first. Runs detached; its failure never reaches
// the caller.
func (s *Service) resolveInBackground(batchID string, fromUserID, toUserID uuid.UUID, amount *big.Int, message string) {
	s.tasks.Go("resolve-payment", func() error {
		// The request context is gone by now; the tracker runs to its
		// own bound.
		confirmation := s.tracker.Await(context.Background(), batchID)

		hash := types.PendingHash(batchID)
		if confirmation.Resolved {
			hash = confirmation.TransactionHash
			s.metrics.IncConfirmationsResolved()
		} else {
			s.metrics.IncConfirmationsUnresolved()
		}

		record := &types.TransactionRecord{
			TransactionHash: hash,
			FromUserID:      fromUserID,
			ToUserID:        toUserID,
			Amount:          types.FormatAmount(amount),
			Message:         message,
		}
		if err := s.records.Insert(context.Background(), record); err != nil {
			return fmt.Errorf("failed to persist transaction record: %w", err)
		}

		s.logger.Info("transaction recorded", "batchId", batchID, "hash", hash)
		return nil
	})
}

// InitializeWallet idempotently creates the user's smart account. The salt
// is derived from the user id, so repeated calls return the same address.
// A fresh wallet gets the welcome bonus in the background.
func (s *Service) InitializeWallet(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.HasWallet() {
		return profile.SmartAccountAddress, true, nil
	}

	salt := relay.DeriveSalt(userID.String())
	address, err := s.accounts.RequestAccount(ctx, s.signerAddress, salt)
	if err != nil {
		return "", false, fmt.Errorf("failed to request smart account: %w", err)
	}

	if err := s.profiles.SetSmartAccount(ctx, userID, address); err != nil {
		return "", false, err
	}

	s.tasks.Go("welcome-bonus", func() error {
		return s.SendWelcomeBonus(context.Background(), userID)
	})

	return address, false, nil
}

// SendWelcomeBonus transfers 1.00 USDC from the treasury account to the
// user, once. The received flag flips only after the relay accepts the
// batch.
func (s *Service) SendWelcomeBonus(ctx context.Context, userID uuid.UUID) error {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.HasWallet() {
		return types.ErrWalletNotInitialized
	}
	if profile.ReceivedWelcomeBonus {
		return fmt.Errorf("welcome bonus already claimed")
	}

	amount := big.NewInt(constants.WelcomeBonusAmount)
	transferData, err := encoders.Transfer(common.HexToAddress(profile.SmartAccountAddress), amount)
	if err != nil {
		return fmt.Errorf("failed to encode welcome transfer: %w", err)
	}

	calls := types.CallBatch{{
		To:   s.builder.TokenFor(types.RepresentationLiquid),
		Data: transferData,
	}}

	batchID, err := s.submitter.Submit(ctx, s.treasury, calls)
	if err != nil {
		return err
	}

	if err := s.profiles.MarkWelcomeBonus(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("welcome bonus submitted", "user", profile.Username, "batchId", batchID)
	return nil
}

// SetYieldPreference flips the user's at-rest representation preference
// and immediately converts the existing balance toward it. A conversion
// failure does not undo the preference; the sweep converges the account on
// its next tick.
func (s *Service) SetYieldPreference(ctx context.Context, userID uuid.UUID, wantsYield bool) error {
	if err := s.profiles.SetYieldPreference(ctx, userID, wantsYield); err != nil {
		return err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.HasWallet() {
		return nil
	}

	batchID, err := s.rebalance(ctx, common.HexToAddress(profile.SmartAccountAddress), wantsYield)
	if err != nil {
		s.logger.Warn("preference conversion failed",
			"user", profile.Username, "wantsYield", wantsYield, "error", err)
		return nil
	}
	if batchID != "" {
		s.logger.Info("preference conversion submitted",
			"user", profile.Username, "wantsYield", wantsYield, "batchId", batchID)
	}
	return nil
}

// rebalance converts the account's entire idle balance toward the given
// preference. Returns an empty batch id when the account is already
// converged.
func (s *Service) rebalance(ctx context.Context, account common.Address, wantsYield bool) (string, error) {
	balances, err := s.reader.Balances(ctx, account)
	if err != nil {
		return "", err
	}

	var allowance *big.Int
	if wantsYield && balances.Liquid.Sign() > 0 {
		allowance, err = s.reader.Allowance(ctx, account, s.builder.Pool())
		if err != nil {
			return "", err
		}
	}

	calls, err := s.builder.BuildRebalance(balances, wantsYield, account, allowance)
	if err != nil {
		return "", err
	}
	if len(calls) == 0 {
		return "", nil
	}

	return s.submitter.Submit(ctx, account, calls)
}
