package app

import (
	"time"

	"studyvoice/internal/model"
	"studyvoice/internal/repository"
)

// UsageService exposes the accounting aggregates the pipeline maintains.
type UsageService struct {
	usageRepo *repository.UsageRepository
}

func NewUsageService(usageRepo *repository.UsageRepository) *UsageService {
	return &UsageService{usageRepo: usageRepo}
}

// GetToday returns today's summary row, or a zero-valued one when the user
// has no activity yet.
func (s *UsageService) GetToday(userID uint) (*model.DailyUsageSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	now := time.Now()
	summary, err := s.usageRepo.GetDailySummary(userID, now)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = &model.DailyUsageSummary{
			UserID: userID,
			Date:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		}
	}
	return summary, nil
}
