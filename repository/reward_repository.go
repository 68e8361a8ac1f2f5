package repository

import (
	"context"
	"fmt"

	"invitepal/database"
	"invitepal/models"
	"invitepal/service"

	"github.com/jackc/pgx/v5"
)

// RewardRepository implements the service.RewardRepository interface
type RewardRepository struct {
	q queryable
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{q: db.Pool}
}

// newRewardRepositoryWithTx creates a new reward repository with a transaction
func newRewardRepositoryWithTx(tx queryable) *RewardRepository {
	return &RewardRepository{q: tx}
}

const rewardColumns = `item_id, description, points_required, redeemed_count, max_count, secrets, created_at, updated_at`

func scanReward(row pgx.Row) (*models.Reward, error) {
	var reward models.Reward
	err := row.Scan(
		&reward.ItemID,
		&reward.Description,
		&reward.PointsRequired,
		&reward.RedeemedCount,
		&reward.MaxCount,
		&reward.Secrets,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// GetByItemID retrieves a reward by its item ID
func (r *RewardRepository) GetByItemID(ctx context.Context, itemID int64) (*models.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards WHERE item_id = $1`, rewardColumns)

	reward, err := scanReward(r.q.QueryRow(ctx, query, itemID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", itemID, err)
	}

	return reward, nil
}

// GetByItemIDForUpdate retrieves a reward and locks its row until the
// enclosing transaction ends, serializing concurrent redemptions of the same
// item
func (r *RewardRepository) GetByItemIDForUpdate(ctx context.Context, itemID int64) (*models.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards WHERE item_id = $1 FOR UPDATE`, rewardColumns)

	reward, err := scanReward(r.q.QueryRow(ctx, query, itemID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d for update: %w", itemID, err)
	}

	return reward, nil
}

// List returns all rewards ordered by item ID
func (r *RewardRepository) List(ctx context.Context) ([]*models.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards ORDER BY item_id`, rewardColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*models.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rewards: %w", err)
	}

	return rewards, nil
}

// IncrementRedeemed increments redeemed_count, conditional on the ceiling so
// a racing redemption cannot push the count past max_count
func (r *RewardRepository) IncrementRedeemed(ctx context.Context, itemID int64) error {
	query := `
		UPDATE rewards
		SET redeemed_count = redeemed_count + 1, updated_at = NOW()
		WHERE item_id = $1 AND redeemed_count < max_count
	`

	result, err := r.q.Exec(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("failed to increment redemption count for reward %d: %w", itemID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reward %d: %w", itemID, service.ErrSoldOut)
	}

	return nil
}
