package database

import (
	"database/sql"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateTrade inserts a journal entry
func CreateTrade(trade *models.Trade) (*models.Trade, error) {
	trade.ID = GenerateID()
	trade.CreatedAt = time.Now().UTC()

	var verdict *string
	if trade.Verdict != nil {
		v := string(*trade.Verdict)
		verdict = &v
	}
	_, err := dbConn.Exec(rebind(
		`INSERT INTO trades (id, user_id, symbol, direction, entry_price, exit_price, quantity, pnl, notes, screenshot_key, verdict, verdict_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		trade.ID, trade.UserID, trade.Symbol, string(trade.Direction), trade.EntryPrice, trade.ExitPrice,
		trade.Quantity, trade.PnL, trade.Notes, trade.ScreenshotKey, verdict, trade.VerdictReason, trade.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

const tradeColumns = "id, user_id, symbol, direction, entry_price, exit_price, quantity, pnl, notes, screenshot_key, verdict, verdict_reason, created_at"

func scanTrade(row interface{ Scan(...any) error }) (*models.Trade, error) {
	t := &models.Trade{}
	var direction string
	var verdict *string
	err := row.Scan(&t.ID, &t.UserID, &t.Symbol, &direction, &t.EntryPrice, &t.ExitPrice,
		&t.Quantity, &t.PnL, &t.Notes, &t.ScreenshotKey, &verdict, &t.VerdictReason, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Direction = models.TradeDirection(direction)
	if verdict != nil {
		v := models.TradeVerdict(*verdict)
		t.Verdict = &v
	}
	return t, nil
}

// GetTradeByID retrieves one journal entry owned by the given user
func GetTradeByID(tradeID, userID string) (*models.Trade, error) {
	row := dbConn.QueryRow(rebind("SELECT "+tradeColumns+" FROM trades WHERE id = ? AND user_id = ?"), tradeID, userID)
	return scanTrade(row)
}

// GetUserTrades lists a student's journal, newest first
func GetUserTrades(userID string) ([]*models.Trade, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT "+tradeColumns+" FROM trades WHERE user_id = ? ORDER BY created_at DESC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

// GetAllTrades lists the most recent trades across all students
func GetAllTrades(limit int) ([]*models.Trade, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT "+tradeColumns+" FROM trades ORDER BY created_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]*models.Trade, error) {
	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpdateTradeVerdict records the assistant's classification on a trade
func UpdateTradeVerdict(tradeID string, verdict models.TradeVerdict, reason string) error {
	result, err := dbConn.Exec(rebind(
		"UPDATE trades SET verdict = ?, verdict_reason = ? WHERE id = ?"),
		string(verdict), reason, tradeID,
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

// SetTradeScreenshot stores the object-storage key of an uploaded chart
func SetTradeScreenshot(tradeID, userID, key string) error {
	result, err := dbConn.Exec(rebind(
		"UPDATE trades SET screenshot_key = ? WHERE id = ? AND user_id = ?"),
		key, tradeID, userID,
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

// DeleteTrade removes a journal entry owned by the given user
func DeleteTrade(tradeID, userID string) error {
	result, err := dbConn.Exec(rebind("DELETE FROM trades WHERE id = ? AND user_id = ?"), tradeID, userID)
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

// GetTradeCount returns the total number of journal entries
func GetTradeCount() (int, error) {
	var count int
	err := dbConn.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count)
	return count, err
}
