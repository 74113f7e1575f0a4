package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSessionSweeper struct {
	mock.Mock
}

func (m *MockSessionSweeper) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) PurgeExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestCleanupScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps sessions and cache", func(t *testing.T) {
		sweeper := new(MockSessionSweeper)
		purger := new(MockPurger)
		sweeper.On("CleanupExpiredSessions", ctx).Return(int64(3), nil)
		purger.On("PurgeExpired", ctx).Return(2, nil)

		s := NewCleanupScheduler(sweeper, purger, time.Hour, zap.NewNop())
		result, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Sessions: 3, CacheEntries: 2}, result)

		sweeper.AssertExpectations(t)
		purger.AssertExpectations(t)
	})

	t.Run("without purger", func(t *testing.T) {
		sweeper := new(MockSessionSweeper)
		sweeper.On("CleanupExpiredSessions", ctx).Return(int64(0), nil)

		s := NewCleanupScheduler(sweeper, nil, time.Hour, zap.NewNop())
		result, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{}, result)
	})

	t.Run("purge runs even when session sweep fails", func(t *testing.T) {
		sweeper := new(MockSessionSweeper)
		purger := new(MockPurger)
		dbErr := errors.New("database unavailable")
		sweeper.On("CleanupExpiredSessions", ctx).Return(int64(0), dbErr)
		purger.On("PurgeExpired", ctx).Return(1, nil)

		s := NewCleanupScheduler(sweeper, purger, time.Hour, zap.NewNop())
		result, err := s.RunOnce(ctx)
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, 1, result.CacheEntries)
		purger.AssertExpectations(t)
	})
}

type countingSweeper struct {
	calls int32
}

func (c *countingSweeper) CleanupExpiredSessions(context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 0, nil
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewCleanupScheduler(sweeper, nil, 5*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&sweeper.calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&sweeper.calls))
}
