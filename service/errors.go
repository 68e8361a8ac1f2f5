package service

import "errors"

var (
	// ErrUserNotFound is returned when an operation targets an unknown user
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientPoints is returned by conditional point deductions when
	// the balance does not cover the amount
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrSoldOut is returned by conditional inventory increments when the
	// reward is already at its redemption ceiling
	ErrSoldOut = errors.New("reward redemption limit reached")

	// ErrNotMember signals that the caller is confirmed not to be a member of
	// the target channel; the gated operation was not performed
	ErrNotMember = errors.New("not a channel member")

	// ErrMembershipCheckFailed signals that the membership oracle could not
	// be queried. Distinct from ErrNotMember: the caller should report the
	// failure, not prompt the user to join.
	ErrMembershipCheckFailed = errors.New("membership check failed")
)
