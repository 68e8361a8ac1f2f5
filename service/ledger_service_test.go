package service

import (
	"context"
	"errors"
	"testing"

	"invitepal/events"
	"invitepal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testBonus int64 = 10

func int64Ptr(v int64) *int64 {
	return &v
}

func setupLedgerTest() (*MockUnitOfWorkFactory, *MockUnitOfWork, *MockUserRepository, *MockEventPublisher) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockPublisher := new(MockEventPublisher)

	mockUoW.SetRepositories(mockUserRepo, nil, mockPublisher)
	mockFactory.On("Create").Return(mockUoW)

	return mockFactory, mockUoW, mockUserRepo, mockPublisher
}

func TestLedgerService_Enter_NewUser_NotMember(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	newUser := &models.User{ID: 100, Username: "newbie", IsMember: false}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(nil, nil)
	mockUserRepo.On("Create", ctx, int64(100), "newbie", (*int64)(nil), false).Return(newUser, nil)

	result, err := service.Enter(ctx, 100, "newbie", nil, false)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateAwaitingMembership, result.State)
	assert.Nil(t, result.Credit)
	assert.Equal(t, int64(0), result.User.PointsAvailable)
	assert.False(t, result.User.ReferralCredited)

	mockUserRepo.AssertExpectations(t)
	mockUserRepo.AssertNotCalled(t, "MarkReferralCredited")
	mockUserRepo.AssertNotCalled(t, "AddPoints")
}

func TestLedgerService_Enter_SelfReferralStoredAsNil(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockPublisher := setupLedgerTest()
	mockPublisher.On("Publish", mock.AnythingOfType("events.UserJoinedEvent")).Return()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	newUser := &models.User{ID: 100, Username: "selfie", IsMember: true}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(nil, nil).Once()
	// Referrer equal to the user's own identity must be dropped before Create
	mockUserRepo.On("Create", ctx, int64(100), "selfie", (*int64)(nil), true).Return(newUser, nil)

	result, err := service.Enter(ctx, 100, "selfie", int64Ptr(100), true)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateMenuReady, result.State)
	assert.Nil(t, result.Credit)

	mockUserRepo.AssertExpectations(t)
	mockUserRepo.AssertNotCalled(t, "MarkReferralCredited")
}

func TestLedgerService_Enter_UnknownReferrerStoredAsNil(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	newUser := &models.User{ID: 100, Username: "orphan", IsMember: false}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(nil, nil).Once()
	mockUserRepo.On("GetByID", ctx, int64(999)).Return(nil, nil).Once()
	mockUserRepo.On("Create", ctx, int64(100), "orphan", (*int64)(nil), false).Return(newUser, nil)

	result, err := service.Enter(ctx, 100, "orphan", int64Ptr(999), false)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateAwaitingMembership, result.State)

	mockUserRepo.AssertExpectations(t)
}

func TestLedgerService_Enter_NewMemberWithReferrer_CreditsBonus(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockPublisher := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	referrer := &models.User{ID: 50, Username: "inviter", IsMember: true}
	newUser := &models.User{ID: 100, Username: "invited", ReferredBy: int64Ptr(50), IsMember: true}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(nil, nil).Once()
	mockUserRepo.On("GetByID", ctx, int64(50)).Return(referrer, nil).Once()
	mockUserRepo.On("Create", ctx, int64(100), "invited", int64Ptr(50), true).Return(newUser, nil)
	mockUserRepo.On("MarkReferralCredited", ctx, int64(100)).Return(true, nil)
	mockUserRepo.On("AddPoints", ctx, int64(50), testBonus).Return(nil)

	mockPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		credited, ok := e.(events.ReferralCreditedEvent)
		return ok && credited.ReferrerID == 50 && credited.ReferredID == 100 && credited.Bonus == testBonus
	})).Return()
	mockPublisher.On("Publish", mock.AnythingOfType("events.UserJoinedEvent")).Return()

	result, err := service.Enter(ctx, 100, "invited", int64Ptr(50), true)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateMenuReady, result.State)
	assert.NotNil(t, result.Credit)
	assert.Equal(t, int64(50), result.Credit.ReferrerID)
	assert.Equal(t, testBonus, result.Credit.Bonus)

	mockUserRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestLedgerService_Enter_JoinTransition_CreditsOnce(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockPublisher := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	existing := &models.User{ID: 100, Username: "invited", ReferredBy: int64Ptr(50), IsMember: false}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(existing, nil)
	mockUserRepo.On("SetMembership", ctx, int64(100), true).Return(nil)
	mockUserRepo.On("MarkReferralCredited", ctx, int64(100)).Return(true, nil)
	mockUserRepo.On("AddPoints", ctx, int64(50), testBonus).Return(nil)

	mockPublisher.On("Publish", mock.Anything).Return()

	result, err := service.Enter(ctx, 100, "invited", nil, true)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateMenuReady, result.State)
	assert.NotNil(t, result.Credit)

	mockUserRepo.AssertExpectations(t)
}

func TestLedgerService_Enter_AlreadyCredited_Idempotent(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	existing := &models.User{
		ID:               100,
		Username:         "invited",
		ReferredBy:       int64Ptr(50),
		IsMember:         true,
		ReferralCredited: true,
		PointsAvailable:  5,
	}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(existing, nil)

	result, err := service.Enter(ctx, 100, "invited", nil, true)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateMenuReady, result.State)
	assert.Nil(t, result.Credit)

	// No membership write (staying true) and no point changes
	mockUserRepo.AssertNotCalled(t, "SetMembership")
	mockUserRepo.AssertNotCalled(t, "MarkReferralCredited")
	mockUserRepo.AssertNotCalled(t, "AddPoints")
}

func TestLedgerService_Enter_LeaveTransition(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	existing := &models.User{ID: 100, Username: "leaver", IsMember: true}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(existing, nil)
	mockUserRepo.On("SetMembership", ctx, int64(100), false).Return(nil)

	result, err := service.Enter(ctx, 100, "leaver", nil, false)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateAwaitingMembership, result.State)
	assert.Nil(t, result.Credit)

	mockUserRepo.AssertExpectations(t)
}

func TestLedgerService_Enter_CreditRaceLost_NoBonus(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockPublisher := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	existing := &models.User{ID: 100, Username: "invited", ReferredBy: int64Ptr(50), IsMember: false}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(existing, nil)
	mockUserRepo.On("SetMembership", ctx, int64(100), true).Return(nil)
	// A concurrent entry already flipped the flag
	mockUserRepo.On("MarkReferralCredited", ctx, int64(100)).Return(false, nil)

	mockPublisher.On("Publish", mock.AnythingOfType("events.UserJoinedEvent")).Return()

	result, err := service.Enter(ctx, 100, "invited", nil, true)

	assert.NoError(t, err)
	assert.Equal(t, models.EntryStateMenuReady, result.State)
	assert.Nil(t, result.Credit)

	mockUserRepo.AssertNotCalled(t, "AddPoints")
}

func TestLedgerService_Enter_CreditFailure_RollsBack(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockPublisher := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	existing := &models.User{ID: 100, Username: "invited", ReferredBy: int64Ptr(50), IsMember: false}

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(existing, nil)
	mockUserRepo.On("SetMembership", ctx, int64(100), true).Return(nil)
	mockUserRepo.On("MarkReferralCredited", ctx, int64(100)).Return(true, nil)
	mockUserRepo.On("AddPoints", ctx, int64(50), testBonus).Return(errors.New("connection reset"))

	mockPublisher.On("Publish", mock.AnythingOfType("events.UserJoinedEvent")).Return()

	result, err := service.Enter(ctx, 100, "invited", nil, true)

	assert.Error(t, err)
	assert.Nil(t, result)

	// Either both halves of the crediting pair land or neither does
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Balance(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(&models.User{ID: 100, PointsAvailable: 30}, nil)

	balance, err := service.Balance(ctx, 100)

	assert.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestLedgerService_Balance_UserNotFound(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, int64(100)).Return(nil, nil)

	_, err := service.Balance(ctx, 100)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLedgerService_ReferralsOf(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, _ := setupLedgerTest()

	service := NewLedgerService(mockFactory, testBonus)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetReferralIDs", ctx, int64(50)).Return([]int64{100, 101, 102}, nil)

	ids, err := service.ReferralsOf(ctx, 50)

	assert.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102}, ids)
}
