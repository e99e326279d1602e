package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roombook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisStateRepository, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStateRepository(client, time.Hour), mr
}

func testState(userID int64) *models.ViewState {
	return &models.ViewState{
		UserID:       userID,
		SelectedDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		ViewMode:     models.ViewModeSchedule,
	}
}

func TestRedisStateRepository_SetGetClear(t *testing.T) {
	repo, _ := setupRedis(t)
	ctx := context.Background()

	got, err := repo.GetState(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetState(ctx, testState(42)))

	got, err = repo.GetState(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, models.ViewModeSchedule, got.ViewMode)
	assert.True(t, got.SelectedDate.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, repo.ClearState(ctx, 42))

	got, err = repo.GetState(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateRepository_TTL(t *testing.T) {
	repo, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, testState(7)))

	mr.FastForward(2 * time.Hour)

	got, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateRepository_RateLimit(t *testing.T) {
	repo, mr := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Окно истекло - лимит сбрасывается
	mr.FastForward(2 * time.Minute)

	allowed, err = repo.CheckRateLimit(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryStateRepository(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	got, err := repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetState(ctx, testState(1)))

	got, err = repo.GetState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.UserID)

	require.NoError(t, repo.ClearState(ctx, 1))

	got, err = repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStateRepository_RateLimit(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

type failingStateRepository struct{}

var errDown = errors.New("connection refused")

func (f *failingStateRepository) GetState(ctx context.Context, userID int64) (*models.ViewState, error) {
	return nil, errDown
}

func (f *failingStateRepository) SetState(ctx context.Context, state *models.ViewState) error {
	return errDown
}

func (f *failingStateRepository) ClearState(ctx context.Context, userID int64) error {
	return errDown
}

func (f *failingStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, errDown
}

func TestFailoverStateRepository_FallsBack(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(&failingStateRepository{}, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, testState(5)))

	got, err := repo.GetState(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.UserID)

	allowed, err := repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestFailoverStateRepository_ConcurrentFailover(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(&failingStateRepository{}, fallback, &logger)
	ctx := context.Background()

	// Падение primary фиксируется из нескольких горутин одновременно
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_ = repo.SetState(ctx, testState(userID))
			_, _ = repo.GetState(ctx, userID)
		}(int64(i))
	}
	wg.Wait()

	got, err := repo.GetState(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.UserID)
}

func TestFailoverStateRepository_PrimaryHealthy(t *testing.T) {
	primary, _ := setupRedis(t)
	logger := zerolog.New(zerolog.NewTestWriter(t))
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, testState(9)))

	// Состояние должно лежать в Redis, а не в fallback
	fromPrimary, err := primary.GetState(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, fromPrimary)

	fromFallback, err := fallback.GetState(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, fromFallback)
}
