package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// ErrProfileNotFound is returned when no profile exists for the lookup key.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads and mutates user profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, username, display_name,
	COALESCE(smart_account_address, ''), received_welcome_bonus, is_earning_yield`

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	err := row.Scan(&p.UserID, &p.Username, &p.DisplayName,
		&p.SmartAccountAddress, &p.ReceivedWelcomeBonus, &p.IsEarningYield)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

// GetByUserID fetches one profile by its user id.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

// GetByUsername fetches one profile by username.
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*types.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username)
	return scanProfile(row)
}

// SetSmartAccount records the smart account address after wallet
// initialization.
func (r *ProfileRepository) SetSmartAccount(ctx context.Context, userID uuid.UUID, address string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET smart_account_address = $2 WHERE user_id = $1`, userID, address)
	if err != nil {
		return fmt.Errorf("failed to set smart account: %w", err)
	}
	return nil
}

// SetYieldPreference flips the earning preference flag. Converting the
// balance is the caller's concern.
func (r *ProfileRepository) SetYieldPreference(ctx context.Context, userID uuid.UUID, wantsYield bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET is_earning_yield = $2 WHERE user_id = $1`, userID, wantsYield)
	if err != nil {
		return fmt.Errorf("failed to set yield preference: %w", err)
	}
	return nil
}

// MarkWelcomeBonus records that the one-time welcome bonus was sent.
func (r *ProfileRepository) MarkWelcomeBonus(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET received_welcome_bonus = TRUE WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark welcome bonus: %w", err)
	}
	return nil
}

// ListWithAccounts returns every profile with an initialized smart
// account, for the rebalancing sweep.
func (r *ProfileRepository) ListWithAccounts(ctx context.Context) ([]*types.Profile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE smart_account_address IS NOT NULL AND smart_account_address <> ''
		 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*types.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
