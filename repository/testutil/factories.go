package testutil

import (
	"context"
	"fmt"

	"invitepal/database"
)

// InsertReward inserts a reward row directly; rewards are provisioned
// out-of-band in production, so repositories expose no create method
func InsertReward(ctx context.Context, db *database.DB, description string, pointsRequired, maxCount int64, secrets []string) (int64, error) {
	var itemID int64
	err := db.QueryRow(ctx,
		`INSERT INTO rewards (description, points_required, max_count, secrets)
		 VALUES ($1, $2, $3, $4)
		 RETURNING item_id`,
		description, pointsRequired, maxCount, secrets,
	).Scan(&itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reward: %w", err)
	}
	return itemID, nil
}

// SetRedeemedCount forces a reward's redeemed_count, for sold-out scenarios
func SetRedeemedCount(ctx context.Context, db *database.DB, itemID, count int64) error {
	_, err := db.Exec(ctx,
		`UPDATE rewards SET redeemed_count = $1 WHERE item_id = $2`, count, itemID)
	return err
}

// SetPoints forces a user's balance, for redemption scenarios
func SetPoints(ctx context.Context, db *database.DB, userID, points int64) error {
	_, err := db.Exec(ctx,
		`UPDATE users SET points_available = $1 WHERE id = $2`, points, userID)
	return err
}
