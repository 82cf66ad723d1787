package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Document lifecycle states. Forward-only: uploaded -> processing -> ready | error.
// A new processing request on a terminal document re-enters processing and
// fully replaces prior results.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusError      = "error"
)

const (
	FileTypePDF  = "pdf"
	FileTypeWord = "word"
)

type Document struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint   `gorm:"not null;index" json:"user_id"`
	FileName      string `gorm:"size:256;not null" json:"file_name"`
	FileRef       string `gorm:"size:512;not null" json:"file_ref"`
	FileSizeBytes int64  `gorm:"not null" json:"file_size_bytes"`
	FileType      string `gorm:"size:16;not null" json:"file_type"`
	Status        string `gorm:"size:16;not null;index" json:"status"`

	Summary      string          `gorm:"type:text" json:"summary"`
	StudyPrompts StudyPromptList `gorm:"type:text" json:"study_prompts"`
	PageContents PageContentList `gorm:"type:text" json:"page_contents"`
	PageCount    int             `json:"page_count"`

	AudioRef             string       `gorm:"size:512" json:"audio_ref"`
	AudioDurationSeconds float64      `json:"audio_duration_seconds"`
	AudioLanguage        string       `gorm:"size:16" json:"audio_language"`
	TTSMetadata          *TTSMetadata `gorm:"type:text" json:"tts_metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StudyPrompt struct {
	Topic  string `json:"topic"`
	Prompt string `json:"prompt"`
}

type PageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	Chapter    string `json:"chapter,omitempty"`
}

// TTSMetadata is a persisted diagnostic record of one synthesis run. It must
// be enough to explain missing or wrong audio without re-running the pipeline.
type TTSMetadata struct {
	Provider           string    `json:"tts_provider"`
	Voice              string    `json:"voice,omitempty"`
	RequestedLanguage  string    `json:"requested_language"`
	TranslationApplied bool      `json:"translation_applied"`
	FailedProviders    []string  `json:"failed_providers,omitempty"`
	TextLength         int       `json:"text_length"`
	TextPreview        string    `json:"text_preview"`
	AudioBytes         int       `json:"audio_bytes"`
	ChunkCount         int       `json:"chunk_count"`
	GeneratedAt        time.Time `json:"generated_at"`
}

type StudyPromptList []StudyPrompt

func (l StudyPromptList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StudyPromptList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type PageContentList []PageContent

func (l PageContentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *PageContentList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func (m *TTSMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *TTSMetadata) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
