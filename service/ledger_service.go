package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"invitepal/events"
	"invitepal/models"
)

type ledgerService struct {
	uowFactory    UnitOfWorkFactory
	referralBonus int64
}

// NewLedgerService creates a new ledger service. referralBonus is the amount
// paid to a referrer when a referred user first joins the channel.
func NewLedgerService(uowFactory UnitOfWorkFactory, referralBonus int64) LedgerService {
	return &ledgerService{
		uowFactory:    uowFactory,
		referralBonus: referralBonus,
	}
}

// Enter handles the lifecycle entry operation
func (s *ledgerService) Enter(ctx context.Context, userID int64, username string, referrerID *int64, currentlyMember bool) (*models.EnterResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		referredBy, err := s.validateReferrer(ctx, uow, userID, referrerID)
		if err != nil {
			return nil, err
		}

		user, err = uow.UserRepository().Create(ctx, userID, username, referredBy, currentlyMember)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.WithFields(log.Fields{
			"userID":   userID,
			"isMember": currentlyMember,
		}).Info("New user registered")

		if currentlyMember {
			uow.EventBus().Publish(events.UserJoinedEvent{UserID: userID, Username: username})
		}
	} else {
		// Re-entry: reconcile stored membership with the fresh observation
		if user.IsMember != currentlyMember {
			if err := uow.UserRepository().SetMembership(ctx, userID, currentlyMember); err != nil {
				return nil, fmt.Errorf("failed to update membership: %w", err)
			}
			user.IsMember = currentlyMember

			if currentlyMember {
				uow.EventBus().Publish(events.UserJoinedEvent{UserID: userID, Username: username})
			}
		}
	}

	result := &models.EnterResult{User: user}

	// Crediting sub-transaction: pays the referrer exactly once, in the same
	// atomic unit that flips referral_credited
	if currentlyMember && user.ReferredBy != nil && !user.ReferralCredited {
		credited, err := uow.UserRepository().MarkReferralCredited(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark referral credited: %w", err)
		}
		if credited {
			if err := uow.UserRepository().AddPoints(ctx, *user.ReferredBy, s.referralBonus); err != nil {
				return nil, fmt.Errorf("failed to credit referrer %d: %w", *user.ReferredBy, err)
			}
			user.ReferralCredited = true
			result.Credit = &models.ReferralCredit{
				ReferrerID: *user.ReferredBy,
				Bonus:      s.referralBonus,
			}

			uow.EventBus().Publish(events.ReferralCreditedEvent{
				ReferrerID:       *user.ReferredBy,
				ReferredID:       userID,
				ReferredUsername: username,
				Bonus:            s.referralBonus,
			})
			log.WithFields(log.Fields{
				"referrerID": *user.ReferredBy,
				"referredID": userID,
				"bonus":      s.referralBonus,
			}).Info("Referral bonus credited")
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if user.IsMember {
		result.State = models.EntryStateMenuReady
	} else {
		result.State = models.EntryStateAwaitingMembership
	}
	return result, nil
}

// validateReferrer resolves the referrer to store at creation time.
// Self-referrals and unknown referrer identities are stored as nil.
func (s *ledgerService) validateReferrer(ctx context.Context, uow UnitOfWork, userID int64, referrerID *int64) (*int64, error) {
	if referrerID == nil {
		return nil, nil
	}
	if *referrerID == userID {
		log.WithField("userID", userID).Warn("Self-referral ignored")
		return nil, nil
	}

	referrer, err := uow.UserRepository().GetByID(ctx, *referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up referrer: %w", err)
	}
	if referrer == nil {
		log.WithFields(log.Fields{
			"userID":     userID,
			"referrerID": *referrerID,
		}).Warn("Unknown referrer ignored")
		return nil, nil
	}
	return referrerID, nil
}

// Balance returns the user's available points
func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	return user.PointsAvailable, nil
}

// ReferralsOf returns the identities of users referred by the given user
func (s *ledgerService) ReferralsOf(ctx context.Context, userID int64) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.UserRepository().GetReferralIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	return ids, nil
}
