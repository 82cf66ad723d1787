package app

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studyvoice/internal/model"
)

type usageEventMetadata struct {
	DocumentID      string  `json:"document_id"`
	FileName        string  `json:"file_name,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Provider        string  `json:"provider,omitempty"`
}

// recordUsage writes the run's billable events and recomputes the day's
// aggregate. Events are guarded by a lookup on (user, action, document),
// so a regenerate-audio run never double-counts against the quota.
func (p *Pipeline) recordUsage(doc *model.Document) error {
	if err := p.recordEvent(doc.UserID, model.ActionPDFUpload, doc.ID, usageEventMetadata{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
	}); err != nil {
		return err
	}

	if doc.AudioRef != "" {
		meta := usageEventMetadata{
			DocumentID:      doc.ID,
			DurationSeconds: doc.AudioDurationSeconds,
		}
		if doc.TTSMetadata != nil {
			meta.Provider = doc.TTSMetadata.Provider
		}
		if err := p.recordEvent(doc.UserID, model.ActionAudioConversion, doc.ID, meta); err != nil {
			return err
		}
	}

	return p.recomputeDailySummary(doc.UserID)
}

func (p *Pipeline) recordEvent(userID uint, actionType, documentID string, meta usageEventMetadata) error {
	existing, err := p.usage.FindEvent(userID, actionType, documentID)
	if err != nil {
		return err
	}
	if existing != nil {
		p.logger.Debug("usage event already recorded",
			zap.Uint("user_id", userID),
			zap.String("action", actionType),
			zap.String("document_id", documentID))
		return nil
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal usage metadata failed: %w", err)
	}
	return p.usage.CreateEvent(&model.UsageEvent{
		UserID:     userID,
		ActionType: actionType,
		DocumentID: documentID,
		Metadata:   string(metaBytes),
	})
}

// recomputeDailySummary re-aggregates today's events from scratch rather
// than incrementing counters, so the summary row always matches the event
// log even after retries or manual corrections.
func (p *Pipeline) recomputeDailySummary(userID uint) error {
	day := p.now()
	events, err := p.usage.ListEventsForDay(userID, day)
	if err != nil {
		return err
	}
	summary := aggregateUsage(userID, day, events)
	return p.usage.UpsertDailySummary(summary)
}

// aggregateUsage folds one day's events into the summary row. Pure, so the
// idempotence property is checkable without a database.
func aggregateUsage(userID uint, day time.Time, events []model.UsageEvent) *model.DailyUsageSummary {
	day = day.UTC()
	summary := &model.DailyUsageSummary{
		UserID: userID,
		Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
	}
	for _, ev := range events {
		switch ev.ActionType {
		case model.ActionPDFUpload:
			summary.PDFsUploaded++
		case model.ActionAudioConversion:
			var meta usageEventMetadata
			if err := json.Unmarshal([]byte(ev.Metadata), &meta); err == nil {
				summary.AudioMinutesUsed += meta.DurationSeconds / 60
			}
		case model.ActionExplainBack:
			summary.ExplainBackCount++
		}
	}
	return summary
}
