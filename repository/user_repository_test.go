package repository

import (
	"context"
	"sync"
	"testing"

	"invitepal/repository/testutil"
	"invitepal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("absent user returns nil", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 12345)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create without referrer", func(t *testing.T) {
		user, err := repo.Create(ctx, 12345, "alice", nil, false)
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, int64(12345), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Nil(t, user.ReferredBy)
		assert.False(t, user.IsMember)
		assert.Equal(t, int64(0), user.PointsAvailable)
		assert.False(t, user.ReferralCredited)
	})

	t.Run("create with referrer", func(t *testing.T) {
		referrerID := int64(12345)
		user, err := repo.Create(ctx, 67890, "bob", &referrerID, true)
		require.NoError(t, err)

		require.NotNil(t, user.ReferredBy)
		assert.Equal(t, referrerID, *user.ReferredBy)
		assert.True(t, user.IsMember)
	})

	t.Run("round trip", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 67890)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "bob", user.Username)
		require.NotNil(t, user.ReferredBy)
		assert.Equal(t, int64(12345), *user.ReferredBy)
	})
}

func TestUserRepository_SetMembership(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, 100, "alice", nil, false)
	require.NoError(t, err)

	require.NoError(t, repo.SetMembership(ctx, 100, true))

	user, err := repo.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsMember)

	err = repo.SetMembership(ctx, 999, true)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserRepository_Points(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, 100, "alice", nil, true)
	require.NoError(t, err)

	t.Run("add", func(t *testing.T) {
		require.NoError(t, repo.AddPoints(ctx, 100, 30))

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(30), user.PointsAvailable)
	})

	t.Run("deduct within balance", func(t *testing.T) {
		require.NoError(t, repo.DeductPoints(ctx, 100, 20))

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(10), user.PointsAvailable)
	})

	t.Run("deduct beyond balance fails and leaves balance intact", func(t *testing.T) {
		err := repo.DeductPoints(ctx, 100, 50)
		assert.ErrorIs(t, err, service.ErrInsufficientPoints)

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(10), user.PointsAvailable)
	})

	t.Run("deduct from unknown user", func(t *testing.T) {
		err := repo.DeductPoints(ctx, 999, 5)
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestUserRepository_MarkReferralCredited(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	referrerID := int64(50)
	_, err := repo.Create(ctx, 50, "inviter", nil, true)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 100, "invited", &referrerID, true)
	require.NoError(t, err)

	credited, err := repo.MarkReferralCredited(ctx, 100)
	require.NoError(t, err)
	assert.True(t, credited)

	// Second flip must report false: the bonus was already paid
	credited, err = repo.MarkReferralCredited(ctx, 100)
	require.NoError(t, err)
	assert.False(t, credited)
}

func TestUserRepository_MarkReferralCredited_Concurrent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	referrerID := int64(50)
	_, err := repo.Create(ctx, 50, "inviter", nil, true)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 100, "invited", &referrerID, true)
	require.NoError(t, err)

	const attempts = 8
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credited, err := repo.MarkReferralCredited(ctx, 100)
			assert.NoError(t, err)
			results <- credited
		}()
	}
	wg.Wait()
	close(results)

	flips := 0
	for credited := range results {
		if credited {
			flips++
		}
	}
	assert.Equal(t, 1, flips, "exactly one concurrent caller may win the credit flip")
}

func TestUserRepository_GetReferralIDs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	referrerID := int64(50)
	_, err := repo.Create(ctx, 50, "inviter", nil, true)
	require.NoError(t, err)

	ids, err := repo.GetReferralIDs(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []int64{101, 102, 103} {
		_, err = repo.Create(ctx, id, "friend", &referrerID, false)
		require.NoError(t, err)
	}

	ids, err = repo.GetReferralIDs(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 103}, ids)
}
