package models

import (
	"time"
)

// User represents a chat-platform user tracked by the referral ledger
type User struct {
	ID               int64     `db:"id"`
	Username         string    `db:"username"`
	ReferredBy       *int64    `db:"referred_by"` // Set at creation, never updated
	IsMember         bool      `db:"is_member"`
	PointsAvailable  int64     `db:"points_available"`
	ReferralCredited bool      `db:"referral_credited"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
