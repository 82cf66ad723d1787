package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyvoice/internal/ai"
	"studyvoice/internal/model"
	"studyvoice/internal/plan"
	"studyvoice/internal/tts"
)

// --- fakes ---

type fakeDocStore struct {
	docs      map[string]*model.Document
	statusLog []string
}

func (s *fakeDocStore) Create(doc *model.Document) error {
	if s.docs == nil {
		s.docs = make(map[string]*model.Document)
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *fakeDocStore) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDocStore) GetByIDAndUserID(id string, userID uint) (*model.Document, error) {
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDocStore) SetStatus(id string, userID uint, status string) error {
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("document %s not owned by user %d", id, userID)
	}
	d.Status = status
	s.statusLog = append(s.statusLog, status)
	return nil
}

func (s *fakeDocStore) SaveResults(doc *model.Document) error {
	d, ok := s.docs[doc.ID]
	if !ok || d.UserID != doc.UserID {
		return fmt.Errorf("document %s not owned by user %d", doc.ID, doc.UserID)
	}
	cp := *doc
	*d = cp
	s.statusLog = append(s.statusLog, doc.Status)
	return nil
}

type fakeProfileStore struct {
	users map[uint]*model.User
}

func (s *fakeProfileStore) GetByID(id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

type fakeUsageStore struct {
	events    []model.UsageEvent
	summaries map[string]*model.DailyUsageSummary
}

func (s *fakeUsageStore) FindEvent(userID uint, actionType, documentID string) (*model.UsageEvent, error) {
	for i := range s.events {
		ev := &s.events[i]
		if ev.UserID == userID && ev.ActionType == actionType && ev.DocumentID == documentID {
			return ev, nil
		}
	}
	return nil, nil
}

func (s *fakeUsageStore) CreateEvent(event *model.UsageEvent) error {
	ev := *event
	ev.CreatedAt = time.Now()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeUsageStore) ListEventsForDay(userID uint, _ time.Time) ([]model.UsageEvent, error) {
	var out []model.UsageEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *fakeUsageStore) UpsertDailySummary(summary *model.DailyUsageSummary) error {
	if s.summaries == nil {
		s.summaries = make(map[string]*model.DailyUsageSummary)
	}
	key := fmt.Sprintf("%d/%s", summary.UserID, summary.Date.Format("2006-01-02"))
	s.summaries[key] = summary
	return nil
}

type fakeBlobStore struct {
	blobs map[string][]byte
}

func (s *fakeBlobStore) Download(_ context.Context, ref string) ([]byte, error) {
	data, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", ref)
	}
	return data, nil
}

func (s *fakeBlobStore) Upload(_ context.Context, key string, data []byte) (string, error) {
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

type fakeLLM struct {
	extractText   string
	extractQueue  []string
	extractErr    error
	summarizeResp string
	summarizeErr  error
	translateResp string
	translateErr  error
	panicOn       string
}

func (f *fakeLLM) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	system := messages[0].Content
	switch {
	case strings.Contains(system, "summarizer"):
		if f.panicOn == "summarize" {
			panic("summarizer blew up")
		}
		return f.summarizeResp, f.summarizeErr
	case strings.Contains(system, "translator"):
		return f.translateResp, f.translateErr
	default:
		return "", fmt.Errorf("unexpected completion call")
	}
}

func (f *fakeLLM) CompleteWithDocument(_ context.Context, _ ai.ChatConfig, _, _, _ string, _ []byte) (string, error) {
	if len(f.extractQueue) > 0 {
		next := f.extractQueue[0]
		f.extractQueue = f.extractQueue[1:]
		return next, f.extractErr
	}
	return f.extractText, f.extractErr
}

type fakeSynth struct {
	gotText string
	gotLang string
	res     *tts.Synthesis
	err     error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, language string, _ int) (*tts.Synthesis, error) {
	f.gotText = text
	f.gotLang = language
	if f.res == nil {
		f.res = &tts.Synthesis{Provider: "none"}
	}
	return f.res, f.err
}

// --- fixture ---

type pipelineFixture struct {
	docs  *fakeDocStore
	users *fakeProfileStore
	usage *fakeUsageStore
	blobs *fakeBlobStore
	llm   *fakeLLM
	synth Synthesizer
	pipe  *Pipeline
}

func summaryJSON(summary string) string {
	out, _ := json.Marshal(map[string]interface{}{
		"summary": summary,
		"study_prompts": []map[string]string{
			{"topic": "Basics", "prompt": "What is the main argument?"},
			{"topic": "Detail", "prompt": "Name one supporting example."},
			{"topic": "Recall", "prompt": "What conclusion is drawn?"},
		},
	})
	return string(out)
}

func longText(words int) string {
	return strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", words/5+1))
}

func newFixture(synth Synthesizer) *pipelineFixture {
	f := &pipelineFixture{
		docs: &fakeDocStore{docs: map[string]*model.Document{
			"doc-1": {
				ID:       "doc-1",
				UserID:   1,
				FileName: "notes.pdf",
				FileRef:  "users/1/documents/doc-1/notes.pdf",
				FileType: model.FileTypePDF,
				Status:   model.DocumentStatusProcessing,
			},
		}},
		users: &fakeProfileStore{users: map[uint]*model.User{
			1: {ID: 1, Username: "ada", Plan: plan.TierFree},
		}},
		usage: &fakeUsageStore{},
		blobs: &fakeBlobStore{blobs: map[string][]byte{
			"users/1/documents/doc-1/notes.pdf": []byte("%PDF-fake"),
		}},
		llm: &fakeLLM{
			extractText:   longText(600),
			summarizeResp: summaryJSON(longText(250)),
		},
		synth: synth,
	}
	f.pipe = NewPipeline(f.docs, f.users, f.usage, f.blobs, f.llm, f.synth,
		nil, plan.Default(),
		PipelineConfig{DefaultLanguage: "en", WordsPerSecond: 2.5}, nil)
	return f
}

func (f *pipelineFixture) run(t *testing.T, language string) error {
	t.Helper()
	return f.pipe.Run(context.Background(), model.ProcessJob{
		DocumentID: "doc-1", UserID: 1, Language: language,
	})
}

func (f *pipelineFixture) doc() *model.Document {
	return f.docs.docs["doc-1"]
}

// --- tests ---

func TestRun_SuccessWithAudio(t *testing.T) {
	synth := &fakeSynth{res: &tts.Synthesis{
		Audio:      &tts.Audio{Data: make([]byte, 40000), Format: "mp3", Voice: "alloy"},
		Provider:   "openai",
		ChunkCount: 1,
	}}
	f := newFixture(synth)

	require.NoError(t, f.run(t, "en"))

	doc := f.doc()
	assert.Equal(t, model.DocumentStatusReady, doc.Status)
	assert.NotEmpty(t, doc.Summary)
	assert.Len(t, doc.StudyPrompts, 3)
	assert.Equal(t, "users/1/documents/doc-1/audio.mp3", doc.AudioRef)
	assert.Equal(t, "en", doc.AudioLanguage)
	assert.Greater(t, doc.AudioDurationSeconds, 0.0)
	require.NotNil(t, doc.TTSMetadata)
	assert.Equal(t, "openai", doc.TTSMetadata.Provider)
	assert.Equal(t, 40000, doc.TTSMetadata.AudioBytes)
	assert.NotEmpty(t, f.blobs.blobs[doc.AudioRef])
}

func TestRun_ExtractionBelowFloorIsFatal(t *testing.T) {
	f := newFixture(&fakeSynth{})
	f.llm.extractText = "too short" // < 50 chars after both paths

	err := f.run(t, "en")
	assert.ErrorIs(t, err, ErrNoExtractableText)
	assert.Equal(t, model.DocumentStatusError, f.doc().Status)
	assert.Empty(t, f.usage.events, "failed runs must not bill")
}

func TestRun_TTSExhaustionStillReady(t *testing.T) {
	synth := &fakeSynth{
		res: &tts.Synthesis{Provider: "none", FailedProviders: []string{"gemini (503)", "openai (payload too small: 12 bytes)"}},
		err: tts.ErrAllProvidersFailed,
	}
	f := newFixture(synth)

	require.NoError(t, f.run(t, "en"))

	doc := f.doc()
	assert.Equal(t, model.DocumentStatusReady, doc.Status)
	assert.NotEmpty(t, doc.Summary, "ready implies non-empty summary")
	assert.Empty(t, doc.AudioRef)
	assert.Zero(t, doc.AudioDurationSeconds)
	require.NotNil(t, doc.TTSMetadata)
	assert.Equal(t, "none", doc.TTSMetadata.Provider)
	assert.Len(t, doc.TTSMetadata.FailedProviders, 2)
}

func TestRun_WaterfallScenario(t *testing.T) {
	// Provider A fails with a 503, provider B returns a 40000-byte payload.
	a := &scriptedProvider{name: "A", err: &tts.StatusError{Code: 503}}
	b := &scriptedProvider{name: "B", payload: make([]byte, 40000)}
	engine := tts.NewEngine([]tts.Provider{a, b}, nil)

	f := newFixture(engine)
	require.NoError(t, f.run(t, "en"))

	doc := f.doc()
	assert.Equal(t, model.DocumentStatusReady, doc.Status)
	require.NotNil(t, doc.TTSMetadata)
	assert.Equal(t, "B", doc.TTSMetadata.Provider)
	assert.Equal(t, []string{"A (503)"}, doc.TTSMetadata.FailedProviders)
	assert.Equal(t, 40000, doc.TTSMetadata.AudioBytes)
}

func TestRun_UsageIsIdempotentAcrossReruns(t *testing.T) {
	synth := &fakeSynth{res: &tts.Synthesis{
		Audio:    &tts.Audio{Data: make([]byte, 5000), Format: "mp3", Voice: "alloy"},
		Provider: "openai",
	}}
	f := newFixture(synth)

	require.NoError(t, f.run(t, "en"))
	require.NoError(t, f.run(t, "en")) // regenerate audio

	counts := map[string]int{}
	for _, ev := range f.usage.events {
		counts[ev.ActionType]++
	}
	assert.Equal(t, 1, counts[model.ActionPDFUpload])
	assert.Equal(t, 1, counts[model.ActionAudioConversion])

	require.Len(t, f.usage.summaries, 1)
	for _, s := range f.usage.summaries {
		assert.Equal(t, 1, s.PDFsUploaded)
		assert.Greater(t, s.AudioMinutesUsed, 0.0)
	}
}

// nilSynth models a synthesizer that ignores the non-nil-result convention.
type nilSynth struct{}

func (nilSynth) Synthesize(context.Context, string, string, int) (*tts.Synthesis, error) {
	return nil, tts.ErrAllProvidersFailed
}

func TestRun_NilSynthesisStillReady(t *testing.T) {
	f := newFixture(nilSynth{})

	require.NoError(t, f.run(t, "en"))
	doc := f.doc()
	assert.Equal(t, model.DocumentStatusReady, doc.Status)
	assert.Empty(t, doc.AudioRef)
	require.NotNil(t, doc.TTSMetadata)
	assert.Equal(t, "none", doc.TTSMetadata.Provider)
}

func TestRun_TranslationApplied(t *testing.T) {
	synth := &fakeSynth{res: &tts.Synthesis{
		Audio:    &tts.Audio{Data: make([]byte, 5000), Format: "wav", Voice: "Kore"},
		Provider: "gemini",
	}}
	f := newFixture(synth)
	f.llm.translateResp = strings.Repeat("tercüme edilmiş metin ", 40)

	require.NoError(t, f.run(t, "tr"))

	doc := f.doc()
	assert.Equal(t, "tr", doc.AudioLanguage)
	assert.Equal(t, "tr", synth.gotLang)
	assert.Contains(t, synth.gotText, "tercüme")
	require.NotNil(t, doc.TTSMetadata)
	assert.True(t, doc.TTSMetadata.TranslationApplied)
	assert.Equal(t, "tr", doc.TTSMetadata.RequestedLanguage)
}

func TestRun_ImplausiblyShortTranslationDegrades(t *testing.T) {
	synth := &fakeSynth{res: &tts.Synthesis{
		Audio:    &tts.Audio{Data: make([]byte, 5000), Format: "mp3", Voice: "alloy"},
		Provider: "openai",
	}}
	f := newFixture(synth)
	f.llm.translateResp = "çeviri" // 8 bytes, under the plausibility floor

	require.NoError(t, f.run(t, "tr"))

	doc := f.doc()
	require.NotNil(t, doc.TTSMetadata)
	assert.False(t, doc.TTSMetadata.TranslationApplied)
	assert.Equal(t, "tr", doc.TTSMetadata.RequestedLanguage)
	assert.Equal(t, "en", synth.gotLang, "synthesis falls back to the default language")
	assert.NotContains(t, synth.gotText, "çeviri")
	assert.Equal(t, "en", doc.AudioLanguage)
}

func TestRun_SummarizationParseFailureDegrades(t *testing.T) {
	synth := &fakeSynth{res: &tts.Synthesis{
		Audio:    &tts.Audio{Data: make([]byte, 5000), Format: "mp3", Voice: "alloy"},
		Provider: "openai",
	}}
	f := newFixture(synth)
	f.llm.summarizeResp = "I cannot produce JSON today."

	require.NoError(t, f.run(t, "en"))

	doc := f.doc()
	assert.Equal(t, model.DocumentStatusReady, doc.Status)
	assert.NotEmpty(t, doc.Summary)
	assert.Contains(t, f.llm.extractText, strings.Fields(doc.Summary)[0],
		"degraded summary is a truncation of the extracted text")
	assert.Empty(t, doc.StudyPrompts)
}

func TestRun_PanicForcesErrorStatus(t *testing.T) {
	f := newFixture(&fakeSynth{})
	f.llm.panicOn = "summarize"

	err := f.run(t, "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline panic")
	assert.Equal(t, model.DocumentStatusError, f.doc().Status)
}

func TestRun_DownloadFailureIsFatal(t *testing.T) {
	f := newFixture(&fakeSynth{})
	delete(f.blobs.blobs, "users/1/documents/doc-1/notes.pdf")

	err := f.run(t, "en")
	require.Error(t, err)
	assert.Equal(t, model.DocumentStatusError, f.doc().Status)
}

func TestRun_ForeignDocumentRejected(t *testing.T) {
	f := newFixture(&fakeSynth{})

	err := f.pipe.Run(context.Background(), model.ProcessJob{
		DocumentID: "doc-1", UserID: 99, Language: "en",
	})
	assert.ErrorIs(t, err, ErrOwnershipChanged)
	// The owner's copy is untouched.
	assert.Equal(t, model.DocumentStatusProcessing, f.doc().Status)
}

// scriptedProvider is a minimal tts.Provider for waterfall scenarios.
type scriptedProvider struct {
	name    string
	payload []byte
	err     error
}

func (p *scriptedProvider) Name() string  { return p.name }
func (p *scriptedProvider) MaxChars() int { return 0 }

func (p *scriptedProvider) Synthesize(_ context.Context, _, _ string) (*tts.Audio, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &tts.Audio{Data: p.payload, Format: "mp3", Voice: "v"}, nil
}
