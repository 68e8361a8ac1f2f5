package models

// EntryState is the outcome of the lifecycle entry operation
type EntryState string

const (
	// EntryStateMenuReady means the user is a member and may use the bot
	EntryStateMenuReady EntryState = "menu_ready"
	// EntryStateAwaitingMembership means the user must join the channel first
	EntryStateAwaitingMembership EntryState = "awaiting_membership"
)

// ReferralCredit describes a referral bonus paid during an entry operation.
// The caller uses it to notify the referrer; the engine itself sends nothing.
type ReferralCredit struct {
	ReferrerID int64
	Bonus      int64
}

// EnterResult is the result of LedgerService.Enter
type EnterResult struct {
	State EntryState
	User  *User
	// Credit is non-nil iff the referral bonus was paid during this call
	Credit *ReferralCredit
}

// RedemptionOutcome distinguishes the possible results of a redemption
type RedemptionOutcome string

const (
	RedemptionSuccess            RedemptionOutcome = "success"
	RedemptionUserNotFound       RedemptionOutcome = "user_not_found"
	RedemptionItemNotFound       RedemptionOutcome = "item_not_found"
	RedemptionSoldOut            RedemptionOutcome = "sold_out"
	RedemptionInsufficientPoints RedemptionOutcome = "insufficient_points"
)

// RedemptionResult is the result of RedemptionService.Redeem.
// Description, Secrets, PointsSpent and NewBalance are only set on success.
type RedemptionResult struct {
	Outcome     RedemptionOutcome
	Description string
	Secrets     []string
	PointsSpent int64
	NewBalance  int64
}
