package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"studyvoice/internal/model"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// FindEvent looks up the event for one (user, action, document) triple.
// Returns nil without error when none exists.
func (r *UsageRepository) FindEvent(userID uint, actionType, documentID string) (*model.UsageEvent, error) {
	var event model.UsageEvent
	err := r.db.Where("user_id = ? AND action_type = ? AND document_id = ?", userID, actionType, documentID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query usage event failed: %w", err)
	}
	return &event, nil
}

func (r *UsageRepository) CreateEvent(event *model.UsageEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create usage event failed: %w", err)
	}
	return nil
}

// ListEventsForDay returns all of a user's events whose created_at falls on
// the given UTC calendar day. Bucketing in UTC keeps the event window
// aligned with the summary rows regardless of the server's zone.
func (r *UsageRepository) ListEventsForDay(userID uint, day time.Time) ([]model.UsageEvent, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var events []model.UsageEvent
	err := r.db.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list usage events failed: %w", err)
	}
	return events, nil
}

// UpsertDailySummary replaces the (user, date) aggregate row with the given
// recomputed values.
func (r *UsageRepository) UpsertDailySummary(summary *model.DailyUsageSummary) error {
	day := summary.Date.UTC()
	summary.Date = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var existing model.DailyUsageSummary
	err := r.db.Where("user_id = ? AND date = ?", summary.UserID, summary.Date).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("query daily summary failed: %w", err)
		}
		if err := r.db.Create(summary).Error; err != nil {
			return fmt.Errorf("create daily summary failed: %w", err)
		}
		return nil
	}

	updates := map[string]interface{}{
		"pdfs_uploaded":      summary.PDFsUploaded,
		"audio_minutes_used": summary.AudioMinutesUsed,
		"explain_back_count": summary.ExplainBackCount,
	}
	if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update daily summary failed: %w", err)
	}
	return nil
}

func (r *UsageRepository) GetDailySummary(userID uint, day time.Time) (*model.DailyUsageSummary, error) {
	day = day.UTC()
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var summary model.DailyUsageSummary
	if err := r.db.Where("user_id = ? AND date = ?", userID, date).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query daily summary failed: %w", err)
	}
	return &summary, nil
}
