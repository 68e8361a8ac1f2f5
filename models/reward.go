package models

import (
	"time"
)

// Reward represents a redeemable reward with limited inventory
type Reward struct {
	ItemID         int64     `db:"item_id"`
	Description    string    `db:"description"`
	PointsRequired int64     `db:"points_required"`
	RedeemedCount  int64     `db:"redeemed_count"`
	MaxCount       int64     `db:"max_count"`
	Secrets        []string  `db:"secrets"` // Opaque payload released to the redeemer
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// SlotsRemaining returns how many redemptions are still available
func (r *Reward) SlotsRemaining() int64 {
	return r.MaxCount - r.RedeemedCount
}

// RewardListing is the user-facing view of a reward, without secrets
type RewardListing struct {
	ItemID         int64
	Description    string
	PointsRequired int64
	SlotsRemaining int64
	MaxCount       int64
}
