package service

import (
	"context"
	"fmt"
)

// RequireMember performs the membership gate: a fresh oracle query,
// short-circuiting the gated operation unless membership is confirmed.
// Returns nil if the user is a member, ErrNotMember if confirmed absent, and
// an error wrapping ErrMembershipCheckFailed if the oracle could not answer.
func RequireMember(ctx context.Context, oracle MembershipOracle, userID int64) error {
	isMember, err := oracle.IsMember(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipCheckFailed, err)
	}
	if !isMember {
		return ErrNotMember
	}
	return nil
}
