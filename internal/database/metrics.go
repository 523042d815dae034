package database

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GetTotalRevenue sums plan prices over every approved application.
// Bucketing happens in Go so the query stays dialect-neutral.
func GetTotalRevenue() (decimal.Decimal, error) {
	approved, err := GetApprovedApplications()
	if err != nil {
		return decimal.Zero, err
	}
	prices, err := planPrices()
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, a := range approved {
		total = total.Add(prices[string(a.RequestedTier)])
	}
	return total, nil
}

// MonthRevenue is one point on the revenue trend
type MonthRevenue struct {
	Month   string // YYYY-MM
	Revenue decimal.Decimal
}

// GetMonthlyRevenue buckets approved-application revenue by decision month
func GetMonthlyRevenue() ([]MonthRevenue, error) {
	approved, err := GetApprovedApplications()
	if err != nil {
		return nil, err
	}
	prices, err := planPrices()
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]decimal.Decimal)
	for _, a := range approved {
		month := a.DecidedAt.UTC().Format("2006-01")
		buckets[month] = buckets[month].Add(prices[string(a.RequestedTier)])
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	trend := make([]MonthRevenue, 0, len(months))
	for _, m := range months {
		trend = append(trend, MonthRevenue{Month: m, Revenue: buckets[m]})
	}
	return trend, nil
}

func planPrices() (map[string]decimal.Decimal, error) {
	plans, err := GetPlans()
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(plans))
	for _, p := range plans {
		prices[string(p.Tier)] = p.PriceUSD
	}
	return prices, nil
}

// GetSignupCountSince counts accounts created after the cutoff
func GetSignupCountSince(cutoff time.Time) (int, error) {
	var count int
	err := dbConn.QueryRow(rebind("SELECT COUNT(*) FROM users WHERE created_at >= ?"), cutoff).Scan(&count)
	return count, err
}
