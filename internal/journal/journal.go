package journal

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/assistant"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/ChartMentor-io/chartmentor/internal/storage"
)

// Uploader is the subset of the storage client the journal needs
type Uploader interface {
	UploadScreenshot(ctx context.Context, userID, tradeID, filename string, reader io.Reader) (*storage.UploadResult, error)
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
	DeleteTradeAssets(ctx context.Context, userID, tradeID string) error
}

// Validator is the subset of the assistant the journal needs
type Validator interface {
	ValidateTrade(ctx context.Context, description, chartURL string, rules []*models.TradingRule) assistant.Verdict
}

// Service coordinates trade persistence, screenshot storage, assistant
// review and feed notifications.
type Service struct {
	feed      *Feed
	uploader  Uploader  // nil when object storage is disabled
	validator Validator // nil when the assistant is not configured
}

func NewService(feed *Feed, uploader Uploader, validator Validator) *Service {
	if feed == nil {
		feed = NewFeed()
	}
	return &Service{feed: feed, uploader: uploader, validator: validator}
}

func (s *Service) Feed() *Feed {
	return s.feed
}

// Record journals a new trade and announces it on the feed
func (s *Service) Record(trade *models.Trade) (*models.Trade, error) {
	created, err := database.CreateTrade(trade)
	if err != nil {
		return nil, fmt.Errorf("record trade: %w", err)
	}
	s.feed.Publish(Event{Kind: EventCreated, UserID: created.UserID, TradeID: created.ID, Trade: created})
	return created, nil
}

// List returns the student's journal, newest first
func (s *Service) List(userID string) ([]*models.Trade, error) {
	return database.GetUserTrades(userID)
}

// Get returns one trade scoped to its owner
func (s *Service) Get(tradeID, userID string) (*models.Trade, error) {
	return database.GetTradeByID(tradeID, userID)
}

// AttachScreenshot uploads a chart image for a trade and stores its key
func (s *Service) AttachScreenshot(ctx context.Context, userID, tradeID, filename string, reader io.Reader) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}
	if _, err := database.GetTradeByID(tradeID, userID); err != nil {
		return nil, err
	}

	result, err := s.uploader.UploadScreenshot(ctx, userID, tradeID, filename, reader)
	if err != nil {
		return nil, fmt.Errorf("upload screenshot: %w", err)
	}
	if err := database.SetTradeScreenshot(tradeID, userID, result.Key); err != nil {
		return nil, err
	}

	trade, err := database.GetTradeByID(tradeID, userID)
	if err != nil {
		return result, err
	}
	s.feed.Publish(Event{Kind: EventUpdated, UserID: userID, TradeID: tradeID, Trade: trade})
	return result, nil
}

// Review runs the assistant over a journaled trade and persists the verdict.
// The screenshot, when present, is handed over as a short-lived URL.
func (s *Service) Review(ctx context.Context, tradeID, userID string) (*models.Trade, error) {
	trade, err := database.GetTradeByID(tradeID, userID)
	if err != nil {
		return nil, err
	}
	if s.validator == nil {
		return trade, fmt.Errorf("trade assistant is not configured")
	}

	rules, err := database.GetTradingRules()
	if err != nil {
		return nil, err
	}

	chartURL := ""
	if trade.ScreenshotKey != nil && s.uploader != nil {
		chartURL, err = s.uploader.GeneratePresignedURL(ctx, *trade.ScreenshotKey, 15*time.Minute)
		if err != nil {
			log.Printf("[JOURNAL] Presign failed for trade %s: %v", tradeID, err)
			chartURL = ""
		}
	}

	verdict := s.validator.ValidateTrade(ctx, describeTrade(trade), chartURL, rules)
	if err := database.UpdateTradeVerdict(tradeID, verdict.Result, verdict.Explanation); err != nil {
		return nil, err
	}

	if verdict.Result == models.VerdictRejected {
		if _, err := database.CreateRuleViolation(&models.RuleViolation{
			UserID:  userID,
			TradeID: &tradeID,
			Rule:    verdict.Explanation,
		}); err != nil {
			log.Printf("[JOURNAL] Recording violation failed: %v", err)
		}
	}

	trade, err = database.GetTradeByID(tradeID, userID)
	if err != nil {
		return nil, err
	}
	s.feed.Publish(Event{Kind: EventUpdated, UserID: userID, TradeID: tradeID, Trade: trade})
	return trade, nil
}

// Remove deletes a trade, its stored assets and announces the removal
func (s *Service) Remove(ctx context.Context, tradeID, userID string) error {
	if err := database.DeleteTrade(tradeID, userID); err != nil {
		return err
	}
	if s.uploader != nil {
		if err := s.uploader.DeleteTradeAssets(ctx, userID, tradeID); err != nil {
			log.Printf("[JOURNAL] Asset cleanup failed for trade %s: %v", tradeID, err)
		}
	}
	s.feed.Publish(Event{Kind: EventDeleted, UserID: userID, TradeID: tradeID})
	return nil
}

func describeTrade(t *models.Trade) string {
	desc := fmt.Sprintf("%s %s, entry %.5f, size %.2f", t.Direction, t.Symbol, t.EntryPrice, t.Quantity)
	if t.ExitPrice != nil {
		desc += fmt.Sprintf(", exit %.5f", *t.ExitPrice)
	}
	if t.Notes != "" {
		desc += "\nStudent notes: " + t.Notes
	}
	return desc
}
