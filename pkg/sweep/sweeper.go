// Package sweep periodically re-applies the conversion planner and batch
// builder to every account so idle balances converge toward each user's
// stated preference even without an active payment. It reuses the payment
// path's components; only the trigger differs.
package sweep

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sigweihq/yieldpay/pkg/batch"
	"github.com/sigweihq/yieldpay/pkg/ledger"
	"github.com/sigweihq/yieldpay/pkg/metrics"
	"github.com/sigweihq/yieldpay/pkg/payments"
	"github.com/sigweihq/yieldpay/pkg/types"
	"golang.org/x/time/rate"
)

// ProfileLister enumerates accounts eligible for rebalancing.
type ProfileLister interface {
	ListWithAccounts(ctx context.Context) ([]*types.Profile, error)
}

// Sweeper converges one account per pass per user. Failures on one
// account never stop the pass; they are logged and the sweep moves on.
type Sweeper struct {
	profiles  ProfileLister
	reader    ledger.Reader
	builder   *batch.Builder
	submitter payments.BatchSubmitter
	limiter   *rate.Limiter
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config wires the sweeper. RelayRate bounds relay submissions per second
// so a large user base cannot saturate the relay quota; zero means one
// account per second.
type Config struct {
	Profiles  ProfileLister
	Reader    ledger.Reader
	Builder   *batch.Builder
	Submitter payments.BatchSubmitter
	Interval  time.Duration
	RelayRate rate.Limit
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func New(cfg Config) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = batch.NewBuilder()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	relayRate := cfg.RelayRate
	if relayRate <= 0 {
		relayRate = rate.Limit(1)
	}
	return &Sweeper{
		profiles:  cfg.Profiles,
		reader:    cfg.Reader,
		builder:   builder,
		submitter: cfg.Submitter,
		limiter:   rate.NewLimiter(relayRate, 1),
		interval:  interval,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Run sweeps immediately, then on every tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce rebalances every account with an initialized wallet.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	profiles, err := s.profiles.ListWithAccounts(ctx)
	if err != nil {
		s.logger.Error("failed to list accounts for sweep", "error", err)
		return
	}

	s.logger.Info("sweep started", "accounts", len(profiles))

	rebalanced := 0
	for _, profile := range profiles {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		submitted, err := s.rebalanceAccount(ctx, profile)
		if err != nil {
			s.logger.Error("failed to rebalance account",
				"user", profile.Username, "error", err)
			continue
		}
		if submitted {
			rebalanced++
			s.metrics.IncSweepBatchesSubmitted()
		}
	}

	s.metrics.IncSweepRuns()
	s.logger.Info("sweep completed", "accounts", len(profiles), "rebalanced", rebalanced)
}

// rebalanceAccount converts the account's entire idle balance toward its
// preference. Returns false when the account is already converged.
func (s *Sweeper) rebalanceAccount(ctx context.Context, profile *types.Profile) (bool, error) {
	account := common.HexToAddress(profile.SmartAccountAddress)

	balances, err := s.reader.Balances(ctx, account)
	if err != nil {
		return false, err
	}

	var allowance *big.Int
	if profile.IsEarningYield && balances.Liquid.Sign() > 0 {
		allowance, err = s.reader.Allowance(ctx, account, s.builder.Pool())
		if err != nil {
			return false, err
		}
	}

	calls, err := s.builder.BuildRebalance(balances, profile.IsEarningYield, account, allowance)
	if err != nil {
		return false, err
	}
	if len(calls) == 0 {
		return false, nil
	}

	batchID, err := s.submitter.Submit(ctx, account, calls)
	if err != nil {
		return false, err
	}

	s.logger.Info("rebalance submitted",
		"user", profile.Username,
		"wantsYield", profile.IsEarningYield,
		"liquid", types.FormatAmount(balances.Liquid),
		"yield", types.FormatAmount(balances.YieldBearing),
		"batchId", batchID)

	return true, nil
}
