package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MinPayloadBytes is the plausibility floor for a synthesized payload.
// Providers occasionally return a 200 with an empty or truncated body;
// anything under this is treated as a failure and the waterfall moves on.
const MinPayloadBytes = 1024

// ErrAllProvidersFailed means the waterfall was exhausted without a single
// plausible payload. Callers treat this as a degraded outcome, not a fatal
// one: the document keeps its text results.
var ErrAllProvidersFailed = errors.New("all tts providers failed")

// Synthesis is the outcome of one waterfall run. FailedProviders is
// populated even on success so partial fallbacks stay visible.
type Synthesis struct {
	Audio           *Audio
	Provider        string
	FailedProviders []string
	ChunkCount      int
}

// Engine tries an ordered list of providers, one at a time, and stops at
// the first plausible payload. Order is a quality and cost ranking, so
// providers are never raced in parallel.
type Engine struct {
	providers []Provider
	minBytes  int
	logger    *zap.Logger
}

func NewEngine(providers []Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		providers: providers,
		minBytes:  MinPayloadBytes,
		logger:    logger,
	}
}

// Synthesize runs the waterfall over the prepared script. maxChunks caps
// how many chunks a plan may synthesize; text beyond that cap is dropped
// rather than failing the provider.
func (e *Engine) Synthesize(ctx context.Context, text, language string, maxChunks int) (*Synthesis, error) {
	result := &Synthesis{Provider: "none"}
	if text == "" {
		return result, ErrAllProvidersFailed
	}
	if maxChunks <= 0 {
		maxChunks = 1
	}

	for _, p := range e.providers {
		audio, chunkCount, err := e.tryProvider(ctx, p, text, language, maxChunks)
		if err != nil {
			result.FailedProviders = append(result.FailedProviders, fmt.Sprintf("%s (%s)", p.Name(), err.Error()))
			e.logger.Warn("tts provider failed",
				zap.String("provider", p.Name()),
				zap.String("language", language),
				zap.Error(err))
			continue
		}
		result.Audio = audio
		result.Provider = p.Name()
		result.ChunkCount = chunkCount
		return result, nil
	}
	return result, ErrAllProvidersFailed
}

func (e *Engine) tryProvider(ctx context.Context, p Provider, text, language string, maxChunks int) (*Audio, int, error) {
	chunks := SplitChunks(text, p.MaxChars())
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	var payload []byte
	var format, voice string
	var pcm *PCMInfo
	for i, chunk := range chunks {
		audio, err := p.Synthesize(ctx, chunk, language)
		if err != nil {
			if len(chunks) > 1 {
				return nil, 0, fmt.Errorf("chunk %d/%d: %s", i+1, len(chunks), err.Error())
			}
			return nil, 0, err
		}
		payload = append(payload, audio.Data...)
		format = audio.Format
		voice = audio.Voice
		pcm = audio.PCM
	}

	if len(payload) < e.minBytes {
		return nil, 0, fmt.Errorf("payload too small: %d bytes", len(payload))
	}
	if format == "pcm" && pcm != nil {
		// One header over the whole sample stream; a header per chunk
		// would make players stop after the first chunk.
		payload = WrapPCM(payload, pcm.SampleRate, pcm.Channels, pcm.BitsPerSample)
		format = "wav"
	}
	return &Audio{Data: payload, Format: format, Voice: voice}, len(chunks), nil
}

// EstimateDuration approximates playback length from word count at a fixed
// words-per-second rate. This is advisory only: it is not measured from the
// decoded audio and is known to drift from the real duration.
func EstimateDuration(text string, wordsPerSecond float64) time.Duration {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	words := len(strings.Fields(text))
	return time.Duration(float64(words) / wordsPerSecond * float64(time.Second))
}
