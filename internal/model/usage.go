package model

import "time"

// Billable action types recorded against a user's quota.
const (
	ActionPDFUpload       = "pdf_upload"
	ActionAudioConversion = "audio_conversion"
	ActionExplainBack     = "explain_back"
)

// UsageEvent is an append-only record of one billable action. The unique
// (user, action, document) index keeps usage recording idempotent across
// pipeline retries such as a manual regenerate-audio run.
type UsageEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:ux_user_action_document,priority:1" json:"user_id"`
	ActionType string    `gorm:"size:32;not null;uniqueIndex:ux_user_action_document,priority:2" json:"action_type"`
	DocumentID string    `gorm:"size:36;not null;uniqueIndex:ux_user_action_document,priority:3" json:"document_id"`
	Metadata   string    `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// DailyUsageSummary is a derived cache over the day's UsageEvents, one row
// per (user, date). It is always recomputed from the event log, never
// incremented in place.
type DailyUsageSummary struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:ux_user_date,priority:1" json:"user_id"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex:ux_user_date,priority:2" json:"date"`
	PDFsUploaded     int       `gorm:"not null;default:0" json:"pdfs_uploaded"`
	AudioMinutesUsed float64   `gorm:"not null;default:0" json:"audio_minutes_used"`
	ExplainBackCount int       `gorm:"not null;default:0" json:"explain_back_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
