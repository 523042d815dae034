// Package dashboard assembles the admin back-office overview from a fan-out
// of independent reads. Each source succeeds or fails on its own: one broken
// query must never empty the whole screen.
package dashboard

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/shopspring/decimal"
)

// Result carries one source's data or its failure
type Result[T any] struct {
	Data T
	Err  error
}

// Metrics are the headline numbers
type Metrics struct {
	UserCount       int
	TradeCount      int
	SignupsThisWeek int
	TotalRevenue    decimal.Decimal
}

// Snapshot is one complete load of the admin overview
type Snapshot struct {
	Students     Result[[]*models.User]
	Trades       Result[[]*models.Trade]
	Applications Result[[]*models.Application]
	Links        Result[[]*models.CommunityLink]
	Plans        Result[[]*models.SubscriptionPlan]
	Metrics      Result[Metrics]
	RevenueTrend Result[[]database.MonthRevenue]
	Enrollments  Result[[]database.EnrollmentCount]
	Violations   Result[[]database.RuleCount]
	Penalties    Result[[]database.StudentPenalty]
}

// Sources holds the fetch functions; tests swap individual entries to
// exercise partial failure.
type Sources struct {
	Students     func() ([]*models.User, error)
	Trades       func() ([]*models.Trade, error)
	Applications func() ([]*models.Application, error)
	Links        func() ([]*models.CommunityLink, error)
	Plans        func() ([]*models.SubscriptionPlan, error)
	Metrics      func() (Metrics, error)
	RevenueTrend func() ([]database.MonthRevenue, error)
	Enrollments  func() ([]database.EnrollmentCount, error)
	Violations   func() ([]database.RuleCount, error)
	Penalties    func() ([]database.StudentPenalty, error)
}

// DefaultSources reads everything from the database
func DefaultSources() Sources {
	return Sources{
		Students:     database.GetStudents,
		Trades:       func() ([]*models.Trade, error) { return database.GetAllTrades(50) },
		Applications: database.GetPendingApplications,
		Links:        func() ([]*models.CommunityLink, error) { return database.GetCommunityLinks(true) },
		Plans:        database.GetPlans,
		Metrics: func() (Metrics, error) {
			var m Metrics
			var err error
			if m.UserCount, err = database.GetUserCount(); err != nil {
				return m, err
			}
			if m.TradeCount, err = database.GetTradeCount(); err != nil {
				return m, err
			}
			if m.SignupsThisWeek, err = database.GetSignupCountSince(time.Now().UTC().AddDate(0, 0, -7)); err != nil {
				return m, err
			}
			if m.TotalRevenue, err = database.GetTotalRevenue(); err != nil {
				return m, err
			}
			return m, nil
		},
		RevenueTrend: database.GetMonthlyRevenue,
		Enrollments:  database.GetEnrollmentCounts,
		Violations:   database.GetViolationCountsByRule,
		Penalties:    database.GetPenaltyPointsByStudent,
	}
}

// Dashboard owns the latest snapshot and the refresh flag
type Dashboard struct {
	sources Sources

	mu         sync.RWMutex
	latest     *Snapshot
	refreshing atomic.Bool
}

func New(sources Sources) *Dashboard {
	return &Dashboard{sources: sources}
}

// fetchInto runs one fetch in its own goroutine. The result travels back
// as an assignment closure, so only Load's goroutine ever touches the
// snapshot; a cancelled Load can hand its partial snapshot to the caller
// while stragglers park their closures in the buffered channel.
func fetchInto[T any](apply chan<- func(*Snapshot), fetch func() (T, error), assign func(*Snapshot, Result[T])) {
	go func() {
		data, err := fetch()
		apply <- func(s *Snapshot) { assign(s, Result[T]{Data: data, Err: err}) }
	}()
}

// Load runs every fetch concurrently and keeps the result as the latest
// snapshot. Last load wins; there is no staleness policy beyond that.
func (d *Dashboard) Load(ctx context.Context) *Snapshot {
	d.refreshing.Store(true)
	defer d.refreshing.Store(false)

	// Buffer must hold every result so stragglers never block after a
	// cancelled load stops draining.
	apply := make(chan func(*Snapshot), 10)

	fetchInto(apply, d.sources.Students, func(s *Snapshot, r Result[[]*models.User]) { s.Students = r })
	fetchInto(apply, d.sources.Trades, func(s *Snapshot, r Result[[]*models.Trade]) { s.Trades = r })
	fetchInto(apply, d.sources.Applications, func(s *Snapshot, r Result[[]*models.Application]) { s.Applications = r })
	fetchInto(apply, d.sources.Links, func(s *Snapshot, r Result[[]*models.CommunityLink]) { s.Links = r })
	fetchInto(apply, d.sources.Plans, func(s *Snapshot, r Result[[]*models.SubscriptionPlan]) { s.Plans = r })
	fetchInto(apply, d.sources.Metrics, func(s *Snapshot, r Result[Metrics]) { s.Metrics = r })
	fetchInto(apply, d.sources.RevenueTrend, func(s *Snapshot, r Result[[]database.MonthRevenue]) { s.RevenueTrend = r })
	fetchInto(apply, d.sources.Enrollments, func(s *Snapshot, r Result[[]database.EnrollmentCount]) { s.Enrollments = r })
	fetchInto(apply, d.sources.Violations, func(s *Snapshot, r Result[[]database.RuleCount]) { s.Violations = r })
	fetchInto(apply, d.sources.Penalties, func(s *Snapshot, r Result[[]database.StudentPenalty]) { s.Penalties = r })

	snap := &Snapshot{}
	for remaining := cap(apply); remaining > 0; remaining-- {
		select {
		case fn := <-apply:
			fn(snap)
		case <-ctx.Done():
			// Completed sources are already applied; the rest stay at
			// their zero Result. Not stored as latest.
			log.Printf("[DASHBOARD] Load cancelled with %d sources outstanding: %v", remaining, ctx.Err())
			return snap
		}
	}

	for name, err := range map[string]error{
		"students": snap.Students.Err, "trades": snap.Trades.Err,
		"applications": snap.Applications.Err, "links": snap.Links.Err,
		"plans": snap.Plans.Err, "metrics": snap.Metrics.Err,
		"revenue": snap.RevenueTrend.Err, "enrollments": snap.Enrollments.Err,
		"violations": snap.Violations.Err, "penalties": snap.Penalties.Err,
	} {
		if err != nil {
			log.Printf("[DASHBOARD] %s fetch failed: %v", name, err)
		}
	}

	d.mu.Lock()
	d.latest = snap
	d.mu.Unlock()
	return snap
}

// Refresh re-runs the full batch
func (d *Dashboard) Refresh(ctx context.Context) *Snapshot {
	return d.Load(ctx)
}

// Latest returns the most recent snapshot, or nil before the first load
func (d *Dashboard) Latest() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

// IsRefreshing reports whether a load is in flight
func (d *Dashboard) IsRefreshing() bool {
	return d.refreshing.Load()
}
