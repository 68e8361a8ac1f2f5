package service

import (
	"context"

	"invitepal/events"
	"invitepal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by their chat identity, or nil if absent
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// Create creates a new user. referredBy must already be validated by the
	// caller (non-self, existing user) or be nil.
	Create(ctx context.Context, userID int64, username string, referredBy *int64, isMember bool) (*models.User, error)

	// SetMembership updates the last-observed membership status
	SetMembership(ctx context.Context, userID int64, isMember bool) error

	// AddPoints adds to a user's point balance atomically
	AddPoints(ctx context.Context, userID int64, amount int64) error

	// DeductPoints deducts from a user's point balance, failing with
	// ErrInsufficientPoints unless the balance covers the amount
	DeductPoints(ctx context.Context, userID int64, amount int64) error

	// MarkReferralCredited flips referral_credited to true. It reports
	// whether this call performed the flip, so crediting happens at most once
	// even under concurrent entry operations.
	MarkReferralCredited(ctx context.Context, userID int64) (bool, error)

	// GetReferralIDs returns the identities of users referred by the given
	// user, in insertion order
	GetReferralIDs(ctx context.Context, referrerID int64) ([]int64, error)
}

// RewardRepository defines the interface for reward data access
type RewardRepository interface {
	// GetByItemID retrieves a reward by its item ID, or nil if absent
	GetByItemID(ctx context.Context, itemID int64) (*models.Reward, error)

	// GetByItemIDForUpdate retrieves a reward and locks its row for the
	// duration of the enclosing transaction
	GetByItemIDForUpdate(ctx context.Context, itemID int64) (*models.Reward, error)

	// List returns all rewards ordered by item ID
	List(ctx context.Context) ([]*models.Reward, error)

	// IncrementRedeemed increments redeemed_count, failing with ErrSoldOut
	// if the reward is already at its redemption ceiling
	IncrementRedeemed(ctx context.Context, itemID int64) error
}

// LedgerService defines the interface for the user lifecycle and referral
// crediting operations
type LedgerService interface {
	// Enter handles the lifecycle entry operation: lookup-or-create the user,
	// record the observed membership status, and pay the referral bonus on
	// the first transition into membership
	Enter(ctx context.Context, userID int64, username string, referrerID *int64, currentlyMember bool) (*models.EnterResult, error)

	// Balance returns the user's available points
	Balance(ctx context.Context, userID int64) (int64, error)

	// ReferralsOf returns the identities of users referred by the given user
	ReferralsOf(ctx context.Context, userID int64) ([]int64, error)
}

// RedemptionService defines the interface for reward operations
type RedemptionService interface {
	// Redeem exchanges the user's points for the reward's secret payload,
	// bounded by the reward's inventory
	Redeem(ctx context.Context, userID int64, itemID int64) (*models.RedemptionResult, error)

	// ListRewards returns the user-facing reward catalog
	ListRewards(ctx context.Context) ([]*models.RewardListing, error)
}

// MembershipOracle answers whether an identity is currently a member of the
// target channel. Implementations live at the transport layer.
type MembershipOracle interface {
	// IsMember reports confirmed membership. A transport failure is returned
	// as an error and must never be treated as "is a member".
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	RewardRepository() RewardRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
