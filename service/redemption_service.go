package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"invitepal/events"
	"invitepal/models"
)

type redemptionService struct {
	uowFactory UnitOfWorkFactory
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(uowFactory UnitOfWorkFactory) RedemptionService {
	return &redemptionService{
		uowFactory: uowFactory,
	}
}

// Redeem exchanges the user's points for the reward's secret payload. The
// whole operation runs in one transaction: the reward row is locked for the
// duration, and the point deduction is a conditional update, so two
// concurrent redemptions cannot jointly oversell inventory or overdraw a
// balance.
func (s *redemptionService) Redeem(ctx context.Context, userID int64, itemID int64) (*models.RedemptionResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return &models.RedemptionResult{Outcome: models.RedemptionUserNotFound}, nil
	}

	reward, err := uow.RewardRepository().GetByItemIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil {
		return &models.RedemptionResult{Outcome: models.RedemptionItemNotFound}, nil
	}

	if reward.RedeemedCount >= reward.MaxCount {
		return &models.RedemptionResult{Outcome: models.RedemptionSoldOut}, nil
	}
	if user.PointsAvailable < reward.PointsRequired {
		return &models.RedemptionResult{Outcome: models.RedemptionInsufficientPoints}, nil
	}

	// A concurrent crediting or redemption on the same user may have changed
	// the balance since the read above; the conditional update is the
	// authoritative check
	if err := uow.UserRepository().DeductPoints(ctx, userID, reward.PointsRequired); err != nil {
		if errors.Is(err, ErrInsufficientPoints) {
			return &models.RedemptionResult{Outcome: models.RedemptionInsufficientPoints}, nil
		}
		return nil, fmt.Errorf("failed to deduct points: %w", err)
	}

	if err := uow.RewardRepository().IncrementRedeemed(ctx, itemID); err != nil {
		if errors.Is(err, ErrSoldOut) {
			return &models.RedemptionResult{Outcome: models.RedemptionSoldOut}, nil
		}
		return nil, fmt.Errorf("failed to increment redemption count: %w", err)
	}

	newBalance := user.PointsAvailable - reward.PointsRequired

	uow.EventBus().Publish(events.RewardRedeemedEvent{
		UserID:      userID,
		ItemID:      itemID,
		PointsSpent: reward.PointsRequired,
		NewBalance:  newBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID": userID,
		"itemID": itemID,
		"points": reward.PointsRequired,
	}).Info("Reward redeemed")

	return &models.RedemptionResult{
		Outcome:     models.RedemptionSuccess,
		Description: reward.Description,
		Secrets:     reward.Secrets,
		PointsSpent: reward.PointsRequired,
		NewBalance:  newBalance,
	}, nil
}

// ListRewards returns the user-facing reward catalog
func (s *redemptionService) ListRewards(ctx context.Context) ([]*models.RewardListing, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rewards, err := uow.RewardRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	listings := make([]*models.RewardListing, 0, len(rewards))
	for _, reward := range rewards {
		listings = append(listings, &models.RewardListing{
			ItemID:         reward.ItemID,
			Description:    reward.Description,
			PointsRequired: reward.PointsRequired,
			SlotsRemaining: reward.SlotsRemaining(),
			MaxCount:       reward.MaxCount,
		})
	}
	return listings, nil
}
