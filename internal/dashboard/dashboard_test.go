package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSources() Sources {
	return Sources{
		Students: func() ([]*models.User, error) {
			return []*models.User{{ID: "u1", FullName: "Ada"}}, nil
		},
		Trades: func() ([]*models.Trade, error) {
			return []*models.Trade{{ID: "t1", Symbol: "EURUSD"}}, nil
		},
		Applications: func() ([]*models.Application, error) { return nil, nil },
		Links:        func() ([]*models.CommunityLink, error) { return nil, nil },
		Plans:        func() ([]*models.SubscriptionPlan, error) { return nil, nil },
		Metrics: func() (Metrics, error) {
			return Metrics{UserCount: 3, TradeCount: 7, TotalRevenue: decimal.NewFromInt(178)}, nil
		},
		RevenueTrend: func() ([]database.MonthRevenue, error) { return nil, nil },
		Enrollments:  func() ([]database.EnrollmentCount, error) { return nil, nil },
		Violations:   func() ([]database.RuleCount, error) { return nil, nil },
		Penalties:    func() ([]database.StudentPenalty, error) { return nil, nil },
	}
}

func TestLoadAllSourcesSucceed(t *testing.T) {
	d := New(stubSources())
	snap := d.Load(context.Background())

	require.NotNil(t, snap)
	assert.NoError(t, snap.Students.Err)
	assert.Len(t, snap.Students.Data, 1)
	assert.NoError(t, snap.Metrics.Err)
	assert.Equal(t, 3, snap.Metrics.Data.UserCount)
	assert.True(t, snap.Metrics.Data.TotalRevenue.Equal(decimal.NewFromInt(178)))
	assert.Same(t, snap, d.Latest())
}

func TestLoadIsolatesFailures(t *testing.T) {
	srcs := stubSources()
	boom := errors.New("students query failed")
	srcs.Students = func() ([]*models.User, error) { return nil, boom }

	d := New(srcs)
	snap := d.Load(context.Background())

	assert.ErrorIs(t, snap.Students.Err, boom)
	assert.Nil(t, snap.Students.Data)

	// Every other source still delivered
	assert.NoError(t, snap.Trades.Err)
	assert.Len(t, snap.Trades.Data, 1)
	assert.NoError(t, snap.Metrics.Err)
	assert.Equal(t, 7, snap.Metrics.Data.TradeCount)
}

func TestLoadAllSourcesFail(t *testing.T) {
	srcs := stubSources()
	boom := errors.New("db down")
	srcs.Students = func() ([]*models.User, error) { return nil, boom }
	srcs.Trades = func() ([]*models.Trade, error) { return nil, boom }
	srcs.Applications = func() ([]*models.Application, error) { return nil, boom }
	srcs.Links = func() ([]*models.CommunityLink, error) { return nil, boom }
	srcs.Plans = func() ([]*models.SubscriptionPlan, error) { return nil, boom }
	srcs.Metrics = func() (Metrics, error) { return Metrics{}, boom }
	srcs.RevenueTrend = func() ([]database.MonthRevenue, error) { return nil, boom }
	srcs.Enrollments = func() ([]database.EnrollmentCount, error) { return nil, boom }
	srcs.Violations = func() ([]database.RuleCount, error) { return nil, boom }
	srcs.Penalties = func() ([]database.StudentPenalty, error) { return nil, boom }

	d := New(srcs)
	snap := d.Load(context.Background())

	// A snapshot still comes back, every cell carrying its error
	require.NotNil(t, snap)
	assert.ErrorIs(t, snap.Metrics.Err, boom)
	assert.ErrorIs(t, snap.Penalties.Err, boom)
}

func TestRefreshReplacesLatest(t *testing.T) {
	srcs := stubSources()
	var mu sync.Mutex
	count := 0
	srcs.Metrics = func() (Metrics, error) {
		mu.Lock()
		defer mu.Unlock()
		count++
		return Metrics{UserCount: count}, nil
	}

	d := New(srcs)
	first := d.Load(context.Background())
	second := d.Refresh(context.Background())

	assert.Equal(t, 1, first.Metrics.Data.UserCount)
	assert.Equal(t, 2, second.Metrics.Data.UserCount)
	assert.Same(t, second, d.Latest())
}

func TestLoadCancelledReturnsOnlyCompletedResults(t *testing.T) {
	srcs := stubSources()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srcs.Trades = func() ([]*models.Trade, error) {
		once.Do(func() { close(entered) })
		<-release
		return []*models.Trade{{ID: "late"}}, nil
	}

	d := New(srcs)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *Snapshot, 1)
	go func() { done <- d.Load(ctx) }()

	<-entered
	cancel()
	snap := <-done
	require.NotNil(t, snap)

	// Reading every field after Load returns must be safe even while the
	// trades fetch is still running; the straggler's result never lands.
	assert.Nil(t, snap.Trades.Data)
	assert.NoError(t, snap.Trades.Err)
	assert.Nil(t, d.Latest(), "a cancelled load must not become the latest snapshot")

	close(release)

	full := d.Load(context.Background())
	require.NoError(t, full.Trades.Err)
	assert.Len(t, full.Trades.Data, 1)
	assert.Same(t, full, d.Latest())
}

func TestIsRefreshingDuringLoad(t *testing.T) {
	srcs := stubSources()
	entered := make(chan struct{})
	release := make(chan struct{})
	srcs.Students = func() ([]*models.User, error) {
		close(entered)
		<-release
		return nil, nil
	}

	d := New(srcs)
	assert.False(t, d.IsRefreshing())

	done := make(chan struct{})
	go func() {
		d.Load(context.Background())
		close(done)
	}()

	<-entered
	assert.True(t, d.IsRefreshing())
	close(release)
	<-done
	assert.False(t, d.IsRefreshing())
}
