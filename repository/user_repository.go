package repository

import (
	"context"
	"fmt"

	"invitepal/database"
	"invitepal/models"
	"invitepal/service"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by their chat identity
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT id, username, referred_by, is_member, points_available, referral_credited, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.ReferredBy,
		&user.IsMember,
		&user.PointsAvailable,
		&user.ReferralCredited,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, userID int64, username string, referredBy *int64, isMember bool) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, referred_by, is_member)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, referred_by, is_member, points_available, referral_credited, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID, username, referredBy, isMember).Scan(
		&user.ID,
		&user.Username,
		&user.ReferredBy,
		&user.IsMember,
		&user.PointsAvailable,
		&user.ReferralCredited,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
	}

	return &user, nil
}

// SetMembership updates the last-observed membership status
func (r *UserRepository) SetMembership(ctx context.Context, userID int64, isMember bool) error {
	query := `
		UPDATE users
		SET is_member = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, isMember, userID)
	if err != nil {
		return fmt.Errorf("failed to set membership for user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("set membership for user %d: %w", userID, service.ErrUserNotFound)
	}

	return nil
}

// AddPoints adds to a user's point balance atomically
func (r *UserRepository) AddPoints(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET points_available = points_available + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to add points for user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("add points for user %d: %w", userID, service.ErrUserNotFound)
	}

	return nil
}

// DeductPoints deducts from a user's point balance. The deduction is
// conditional on the balance covering the amount, so a racing deduction on
// the same user cannot drive the balance negative.
func (r *UserRepository) DeductPoints(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET points_available = points_available - $1, updated_at = NOW()
		WHERE id = $2 AND points_available >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to deduct points for user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing user from an insufficient balance
		user, err := r.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("deduct points for user %d: %w", userID, service.ErrUserNotFound)
		}
		return fmt.Errorf("user %d has %d points, needs %d: %w", userID, user.PointsAvailable, amount, service.ErrInsufficientPoints)
	}

	return nil
}

// MarkReferralCredited flips referral_credited to true and reports whether
// this call performed the flip. The conditional update makes crediting
// exactly-once under concurrent entry operations.
func (r *UserRepository) MarkReferralCredited(ctx context.Context, userID int64) (bool, error) {
	query := `
		UPDATE users
		SET referral_credited = TRUE, updated_at = NOW()
		WHERE id = $1 AND referral_credited = FALSE
	`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark referral credited for user %d: %w", userID, err)
	}

	return result.RowsAffected() == 1, nil
}

// GetReferralIDs returns the identities of users referred by the given user,
// in insertion order
func (r *UserRepository) GetReferralIDs(ctx context.Context, referrerID int64) ([]int64, error) {
	query := `
		SELECT id
		FROM users
		WHERE referred_by = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals of user %d: %w", referrerID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan referral id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}

	return ids, nil
}
