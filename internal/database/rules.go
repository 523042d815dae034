package database

import (
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateTradingRule appends a rule to the ordered list
func CreateTradingRule(text string, position int) (*models.TradingRule, error) {
	rule := &models.TradingRule{ID: GenerateID(), Text: text, Position: position}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO trading_rules (id, text, position) VALUES (?, ?, ?)"),
		rule.ID, rule.Text, rule.Position,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// GetTradingRules lists the rules in the order the assistant applies them
func GetTradingRules() ([]*models.TradingRule, error) {
	rows, err := dbConn.Query("SELECT id, text, position FROM trading_rules ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.TradingRule
	for rows.Next() {
		r := &models.TradingRule{}
		if err := rows.Scan(&r.ID, &r.Text, &r.Position); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteTradingRule removes a rule
func DeleteTradingRule(id string) error {
	result, err := dbConn.Exec(rebind("DELETE FROM trading_rules WHERE id = ?"), id)
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

// CreateRuleViolation records a broken rule against a trade
func CreateRuleViolation(v *models.RuleViolation) (*models.RuleViolation, error) {
	v.ID = GenerateID()
	v.CreatedAt = time.Now().UTC()
	if v.PenaltyPoints == 0 {
		v.PenaltyPoints = 1
	}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO rule_violations (id, user_id, trade_id, rule, penalty_points, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		v.ID, v.UserID, v.TradeID, v.Rule, v.PenaltyPoints, v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RuleCount pairs a rule with how often it has been broken
type RuleCount struct {
	Rule  string
	Count int
}

// GetViolationCountsByRule aggregates violations per rule, worst first
func GetViolationCountsByRule() ([]RuleCount, error) {
	rows, err := dbConn.Query(
		"SELECT rule, COUNT(*) FROM rule_violations GROUP BY rule ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []RuleCount
	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.Rule, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

// StudentPenalty pairs a student with their accumulated penalty points
type StudentPenalty struct {
	UserID   string
	FullName string
	Points   int
}

// GetPenaltyPointsByStudent aggregates penalty points per student
func GetPenaltyPointsByStudent() ([]StudentPenalty, error) {
	rows, err := dbConn.Query(
		`SELECT u.id, u.full_name, COALESCE(SUM(v.penalty_points), 0)
		 FROM users u JOIN rule_violations v ON v.user_id = u.id
		 GROUP BY u.id, u.full_name ORDER BY SUM(v.penalty_points) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []StudentPenalty
	for rows.Next() {
		var sp StudentPenalty
		if err := rows.Scan(&sp.UserID, &sp.FullName, &sp.Points); err != nil {
			return nil, err
		}
		penalties = append(penalties, sp)
	}
	return penalties, rows.Err()
}
