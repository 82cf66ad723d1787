package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studyvoice/internal/ai"
	"studyvoice/internal/model"
	"studyvoice/internal/plan"
	"studyvoice/internal/storage"
	"studyvoice/internal/tts"
)

var (
	ErrNoExtractableText = errors.New("no extractable text")
	ErrOwnershipChanged  = errors.New("document ownership check failed")
)

// minExtractChars is the floor under which extraction counts as failed.
// Summarizing near-empty text produces garbage that would otherwise look
// like a successful run.
const minExtractChars = 50

// DocumentStore is the slice of the document repository the pipeline needs.
type DocumentStore interface {
	GetByIDAndUserID(documentID string, userID uint) (*model.Document, error)
	SetStatus(documentID string, userID uint, status string) error
	SaveResults(doc *model.Document) error
}

// ProfileStore resolves the owner's current profile. The plan is read fresh
// at run start so a tier change applies to the very next document.
type ProfileStore interface {
	GetByID(id uint) (*model.User, error)
}

// UsageStore is the slice of the usage repository the accounting stage needs.
type UsageStore interface {
	FindEvent(userID uint, actionType, documentID string) (*model.UsageEvent, error)
	CreateEvent(event *model.UsageEvent) error
	ListEventsForDay(userID uint, day time.Time) ([]model.UsageEvent, error)
	UpsertDailySummary(summary *model.DailyUsageSummary) error
}

// LLMClient is the text-understanding provider surface used by the
// extraction, summarization, and translation stages.
type LLMClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	CompleteWithDocument(ctx context.Context, cfg ai.ChatConfig, systemPrompt, userPrompt, fileName string, fileBytes []byte) (string, error)
}

// Synthesizer is the TTS waterfall surface. Implementations should return
// a non-nil Synthesis even on error so the failed-provider record survives;
// the pipeline tolerates a nil result anyway.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string, maxChunks int) (*tts.Synthesis, error)
}

// PipelineConfig carries the model endpoints and tuning for one deployment.
type PipelineConfig struct {
	Extract         ai.ChatConfig
	Summarize       ai.ChatConfig
	Translate       ai.ChatConfig
	DefaultLanguage string
	WordsPerSecond  float64
}

// Pipeline runs the full background processing sequence for one document:
// extraction, summarization, optional translation, TTS waterfall, then
// persistence and accounting. Stages are strictly sequential; documents
// run independently of each other.
type Pipeline struct {
	docs   DocumentStore
	users  ProfileStore
	usage  UsageStore
	blobs  storage.BlobStore
	llm    LLMClient
	synth  Synthesizer
	cache  DocumentCache
	plans  plan.Table
	cfg    PipelineConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewPipeline(
	docs DocumentStore,
	users ProfileStore,
	usage UsageStore,
	blobs storage.BlobStore,
	llm LLMClient,
	synth Synthesizer,
	cache DocumentCache,
	plans plan.Table,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		docs:   docs,
		users:  users,
		usage:  usage,
		blobs:  blobs,
		llm:    llm,
		synth:  synth,
		cache:  cache,
		plans:  plans,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes one pipeline pass. Whatever happens, the document never
// stays in "processing": any failure or panic forces it to "error" before
// Run returns.
func (p *Pipeline) Run(ctx context.Context, job model.ProcessJob) (err error) {
	completed := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if !completed {
			if stErr := p.docs.SetStatus(job.DocumentID, job.UserID, model.DocumentStatusError); stErr != nil {
				p.logger.Error("force error status failed",
					zap.String("document_id", job.DocumentID), zap.Error(stErr))
			}
			p.invalidate(ctx, job.DocumentID)
			p.logger.Warn("pipeline run failed",
				zap.String("document_id", job.DocumentID), zap.Error(err))
		}
	}()

	// Ownership may have changed between admission and this background
	// run; re-verify before touching anything.
	doc, err := p.docs.GetByIDAndUserID(job.DocumentID, job.UserID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrOwnershipChanged
	}

	if err = p.docs.SetStatus(doc.ID, doc.UserID, model.DocumentStatusProcessing); err != nil {
		return err
	}
	p.invalidate(ctx, doc.ID)

	owner, err := p.users.GetByID(doc.UserID)
	if err != nil {
		return err
	}
	if owner == nil {
		return ErrOwnershipChanged
	}
	limits := p.plans.Resolve(owner.Plan)

	fileBytes, err := p.blobs.Download(ctx, doc.FileRef)
	if err != nil {
		return fmt.Errorf("download source file failed: %w", err)
	}

	extraction, err := p.extract(ctx, doc, fileBytes, limits)
	if err != nil {
		return err
	}

	summary, prompts := p.summarize(ctx, extraction.Text, limits)

	script := tts.Truncate(tts.NormalizeScript(summary), limits.TTSMaxChars)
	language := p.cfg.DefaultLanguage
	translationApplied := false
	if job.Language != "" && job.Language != p.cfg.DefaultLanguage {
		// Translation failure degrades to default-language audio; the
		// metadata records that the request was not honored.
		if translated, ok := p.translate(ctx, script, job.Language); ok {
			script = translated
			language = job.Language
			translationApplied = true
		}
	}

	synthesis, synthErr := p.synth.Synthesize(ctx, script, language, limits.TTSMaxChunks)
	if synthesis == nil {
		synthesis = &tts.Synthesis{Provider: "none"}
	}
	if synthErr != nil {
		// Non-fatal: the document's text results stay useful without
		// narration. The failed-provider record makes this visible.
		p.logger.Warn("tts exhausted all providers",
			zap.String("document_id", doc.ID),
			zap.Strings("failed_providers", synthesis.FailedProviders))
	}

	doc.Summary = summary
	doc.StudyPrompts = prompts
	doc.PageContents = extraction.Pages
	doc.PageCount = extraction.PageCount

	if err = p.persist(ctx, doc, job, script, language, translationApplied, synthesis); err != nil {
		return err
	}

	if err = p.recordUsage(doc); err != nil {
		return err
	}

	completed = true
	p.invalidate(ctx, doc.ID)
	p.logger.Info("pipeline run complete",
		zap.String("document_id", doc.ID),
		zap.String("tts_provider", synthesis.Provider),
		zap.Int("summary_chars", len(summary)))
	return nil
}

// persist uploads the audio payload, fills the audio columns, and writes
// the terminal record in one update.
func (p *Pipeline) persist(
	ctx context.Context,
	doc *model.Document,
	job model.ProcessJob,
	script, language string,
	translationApplied bool,
	synthesis *tts.Synthesis,
) error {
	meta := &model.TTSMetadata{
		Provider:           synthesis.Provider,
		RequestedLanguage:  job.Language,
		TranslationApplied: translationApplied,
		FailedProviders:    synthesis.FailedProviders,
		TextLength:         len(script),
		TextPreview:        tts.Truncate(script, 160),
		ChunkCount:         synthesis.ChunkCount,
		GeneratedAt:        p.now(),
	}

	doc.AudioRef = ""
	doc.AudioDurationSeconds = 0
	doc.AudioLanguage = ""

	if synthesis.Audio != nil {
		key := storage.AudioKey(doc.UserID, doc.ID, synthesis.Audio.Format)
		ref, err := p.blobs.Upload(ctx, key, synthesis.Audio.Data)
		if err != nil {
			return fmt.Errorf("upload audio failed: %w", err)
		}
		doc.AudioRef = ref
		doc.AudioDurationSeconds = tts.EstimateDuration(script, p.cfg.WordsPerSecond).Seconds()
		doc.AudioLanguage = language
		meta.Voice = synthesis.Audio.Voice
		meta.AudioBytes = len(synthesis.Audio.Data)
	}

	doc.TTSMetadata = meta
	doc.Status = model.DocumentStatusReady
	return p.docs.SaveResults(doc)
}

func (p *Pipeline) invalidate(ctx context.Context, documentID string) {
	if p.cache != nil {
		_ = p.cache.Delete(ctx, documentID)
	}
}
