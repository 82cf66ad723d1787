package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"studyvoice/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByIDAndUserID returns nil without error when the document does not
// exist or belongs to another user. Every pipeline stage goes through this
// so a stale or forged id never becomes an update target.
func (r *DocumentRepository) GetByIDAndUserID(documentID string, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND user_id = ?", documentID, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUserID(userID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// SetStatus flips the lifecycle status only. Content columns are left
// untouched so a concurrent reader never sees half-written results.
func (r *DocumentRepository) SetStatus(documentID string, userID uint, status string) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND user_id = ?", documentID, userID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("set document status failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set document status: document %s not owned by user %d", documentID, userID)
	}
	return nil
}

// SaveResults writes back the full outcome of a pipeline run in one update.
// Re-processing replaces prior results wholesale, including clearing audio
// columns when the new run produced none.
func (r *DocumentRepository) SaveResults(doc *model.Document) error {
	updates := map[string]interface{}{
		"status":                 doc.Status,
		"summary":                doc.Summary,
		"study_prompts":          doc.StudyPrompts,
		"page_contents":          doc.PageContents,
		"page_count":             doc.PageCount,
		"audio_ref":              doc.AudioRef,
		"audio_duration_seconds": doc.AudioDurationSeconds,
		"audio_language":         doc.AudioLanguage,
		"tts_metadata":           doc.TTSMetadata,
	}
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND user_id = ?", doc.ID, doc.UserID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("save document results failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save document results: document %s not owned by user %d", doc.ID, doc.UserID)
	}
	return nil
}
