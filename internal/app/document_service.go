package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyvoice/internal/model"
	"studyvoice/internal/ratelimit"
	"studyvoice/internal/storage"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrJobEnqueue          = errors.New("process job enqueue failed")
)

const (
	rateActionProcess = "document_process"
	rateActionUpload  = "document_upload"

	maxUploadBytes = 50 << 20
)

// DocumentAdmissionStore is the slice of the document repository the
// admission surface needs.
type DocumentAdmissionStore interface {
	Create(doc *model.Document) error
	GetByIDAndUserID(documentID string, userID uint) (*model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	SetStatus(documentID string, userID uint, status string) error
}

// AsyncJobPublisher hands a process job to the background execution
// substrate. The admission call returns as soon as the job is queued.
type AsyncJobPublisher interface {
	Publish(ctx context.Context, job model.ProcessJob) error
}

// DocumentCache is a read-through cache over document records keyed by id.
type DocumentCache interface {
	Get(ctx context.Context, documentID string) (*model.Document, bool, error)
	Set(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, documentID string) error
}

// RateLimitConfig are the admission windows, resolved from configuration.
type RateLimitConfig struct {
	ProcessWindow time.Duration
	ProcessMax    int
	UploadWindow  time.Duration
	UploadMax     int
}

type DocumentService struct {
	docRepo   DocumentAdmissionStore
	blobs     storage.BlobStore
	cache     DocumentCache
	limiter   *ratelimit.Limiter
	publisher AsyncJobPublisher
	limits    RateLimitConfig
	logger    *zap.Logger
}

func NewDocumentService(
	docRepo DocumentAdmissionStore,
	blobs storage.BlobStore,
	cache DocumentCache,
	limiter *ratelimit.Limiter,
	publisher AsyncJobPublisher,
	limits RateLimitConfig,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		docRepo:   docRepo,
		blobs:     blobs,
		cache:     cache,
		limiter:   limiter,
		publisher: publisher,
		limits:    limits,
		logger:    logger,
	}
}

type UploadInput struct {
	UserID   uint
	FileName string
	Data     []byte
}

// Upload stores the source file and creates the document record in the
// "uploaded" state. Processing is a separate, explicit request.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 || len(input.Data) == 0 || len(input.Data) > maxUploadBytes {
		return nil, ErrInvalidInput
	}
	fileName := sanitizeFileName(input.FileName)
	fileType, err := fileTypeFromName(fileName)
	if err != nil {
		return nil, err
	}

	if res := s.limiter.Allow(input.UserID, rateActionUpload, s.limits.UploadWindow, s.limits.UploadMax); !res.Allowed {
		return nil, rateLimitError(res)
	}

	docID := uuid.NewString()
	ref, err := s.blobs.Upload(ctx, storage.DocumentKey(input.UserID, docID, fileName), input.Data)
	if err != nil {
		return nil, fmt.Errorf("store source file failed: %w", err)
	}

	doc := &model.Document{
		ID:            docID,
		UserID:        input.UserID,
		FileName:      fileName,
		FileRef:       ref,
		FileSizeBytes: int64(len(input.Data)),
		FileType:      fileType,
		Status:        model.DocumentStatusUploaded,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type ProcessInput struct {
	UserID     uint
	DocumentID string
	Language   string
}

// Process is the synchronous admission path: rate limit, ownership check,
// status flip to processing, then hand off to the background queue. The
// caller polls the document record for the eventual result.
func (s *DocumentService) Process(ctx context.Context, input ProcessInput) (*model.Document, error) {
	if input.UserID == 0 || input.DocumentID == "" {
		return nil, ErrInvalidInput
	}
	language := strings.ToLower(strings.TrimSpace(input.Language))
	if language == "" {
		language = "en"
	}

	if res := s.limiter.Allow(input.UserID, rateActionProcess, s.limits.ProcessWindow, s.limits.ProcessMax); !res.Allowed {
		return nil, rateLimitError(res)
	}

	doc, err := s.docRepo.GetByIDAndUserID(input.DocumentID, input.UserID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	// Flip before queueing so a concurrent status read reflects progress.
	// A terminal document re-enters processing here; the run replaces all
	// prior results.
	if err := s.docRepo.SetStatus(doc.ID, doc.UserID, model.DocumentStatusProcessing); err != nil {
		return nil, err
	}
	doc.Status = model.DocumentStatusProcessing
	if s.cache != nil {
		_ = s.cache.Delete(ctx, doc.ID)
	}

	job := model.ProcessJob{
		DocumentID: doc.ID,
		UserID:     input.UserID,
		Language:   language,
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		// The document must not stay stuck in processing when the job
		// never made it onto the queue.
		_ = s.docRepo.SetStatus(doc.ID, doc.UserID, model.DocumentStatusError)
		s.logger.Error("enqueue process job failed", zap.String("document_id", doc.ID), zap.Error(err))
		return nil, ErrJobEnqueue
	}

	s.logger.Info("document admitted for processing",
		zap.String("document_id", doc.ID),
		zap.Uint("user_id", input.UserID),
		zap.String("language", language))
	return doc, nil
}

// Get returns one owned document, serving from cache when it is fresh.
func (s *DocumentService) Get(ctx context.Context, userID uint, documentID string) (*model.Document, error) {
	if userID == 0 || documentID == "" {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, documentID); err == nil && hit {
			if cached.UserID == userID {
				return cached, nil
			}
			// Cached under another owner: fall through to the ownership
			// check below rather than leaking the record.
		}
	}

	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, doc)
	}
	return doc, nil
}

func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

// RateLimitedError carries the retry hint for a 429 response.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

func rateLimitError(res ratelimit.Result) error {
	return &RateLimitedError{RetryAfter: res.ResetIn}
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." {
		name = "document"
	}
	return name
}

func fileTypeFromName(name string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return model.FileTypePDF, nil
	case ".doc", ".docx":
		return model.FileTypeWord, nil
	default:
		return "", ErrUnsupportedFileType
	}
}
