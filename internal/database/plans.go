package database

import (
	"database/sql"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/shopspring/decimal"
)

// CreatePlan inserts a subscription plan. Prices are stored as text and
// parsed with decimal to keep cents exact on both dialects.
func CreatePlan(plan *models.SubscriptionPlan) (*models.SubscriptionPlan, error) {
	if plan.ID == "" {
		plan.ID = GenerateID()
	}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO subscription_plans (id, name, tier, price_usd, blurb, requires_review) VALUES (?, ?, ?, ?, ?, ?)"),
		plan.ID, plan.Name, string(plan.Tier), plan.PriceUSD.String(), plan.Blurb, plan.RequiresReview,
	)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func scanPlan(row interface{ Scan(...any) error }) (*models.SubscriptionPlan, error) {
	p := &models.SubscriptionPlan{}
	var tier, price string
	err := row.Scan(&p.ID, &p.Name, &tier, &price, &p.Blurb, &p.RequiresReview)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Tier = models.ParseTier(tier)
	if d, err := decimal.NewFromString(price); err == nil {
		p.PriceUSD = d
	}
	return p, nil
}

// GetPlans lists every subscription plan, cheapest first
func GetPlans() ([]*models.SubscriptionPlan, error) {
	rows, err := dbConn.Query(
		"SELECT id, name, tier, price_usd, blurb, requires_review FROM subscription_plans")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 1; i < len(plans); i++ {
		for j := i; j > 0 && plans[j].PriceUSD.LessThan(plans[j-1].PriceUSD); j-- {
			plans[j], plans[j-1] = plans[j-1], plans[j]
		}
	}
	return plans, nil
}

// GetPlanByTier retrieves the plan for one tier
func GetPlanByTier(tier models.Tier) (*models.SubscriptionPlan, error) {
	row := dbConn.QueryRow(rebind(
		"SELECT id, name, tier, price_usd, blurb, requires_review FROM subscription_plans WHERE tier = ?"),
		string(tier),
	)
	return scanPlan(row)
}

// UpdatePlan rewrites a plan's price and blurb
func UpdatePlan(plan *models.SubscriptionPlan) error {
	result, err := dbConn.Exec(rebind(
		"UPDATE subscription_plans SET name = ?, price_usd = ?, blurb = ?, requires_review = ? WHERE id = ?"),
		plan.Name, plan.PriceUSD.String(), plan.Blurb, plan.RequiresReview, plan.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
