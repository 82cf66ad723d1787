package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"studyvoice/internal/ai"
	"studyvoice/internal/model"
	"studyvoice/internal/pkg/jsonx"
	"studyvoice/internal/plan"
	"studyvoice/internal/tts"
)

// Summarization models default to front-loading: they cover the opening
// pages and skim the rest. The instruction demands whole-document coverage
// and forbids outside knowledge.
const summarizeSystemPrompt = `You are a study-material summarizer. Base the summary ONLY on the supplied text; never add outside knowledge. Cover the WHOLE text evenly, including its later sections, not just the beginning. Respond with JSON only.`

const summarizePromptFmt = `Summarize the following text in %d to %d words, then write %d to %d study prompts that test understanding of it.

Respond with a single JSON object and nothing else:
{
  "summary": "...",
  "study_prompts": [
    {"topic": "short topic label", "prompt": "the study question"}
  ]
}

Text:
%s`

type summarization struct {
	Summary      string              `json:"summary"`
	StudyPrompts []model.StudyPrompt `json:"study_prompts"`
}

// summarize produces the bounded summary and study prompts. It never fails
// the pipeline: any model or parse failure degrades to a truncation of the
// extracted text itself.
func (p *Pipeline) summarize(ctx context.Context, text string, limits plan.Limits) (string, model.StudyPromptList) {
	input := tts.Truncate(text, limits.SummaryInputChars)

	prompt := fmt.Sprintf(summarizePromptFmt,
		limits.SummaryMinWords, limits.SummaryMaxWords,
		limits.MinPrompts, limits.MaxPrompts,
		input)

	raw, err := p.llm.Complete(ctx, p.cfg.Summarize, []ai.ChatMessage{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		p.logger.Warn("summarization call failed, using truncated text", zap.Error(err))
		return fallbackSummary(text, limits), nil
	}

	var parsed summarization
	if err := jsonx.Decode(raw, &parsed); err != nil || strings.TrimSpace(parsed.Summary) == "" {
		p.logger.Warn("summarization response unusable, using truncated text",
			zap.Int("response_chars", len(raw)))
		return fallbackSummary(text, limits), nil
	}

	prompts := parsed.StudyPrompts
	if len(prompts) > limits.MaxPrompts {
		prompts = prompts[:limits.MaxPrompts]
	}
	return strings.TrimSpace(parsed.Summary), prompts
}

// fallbackSummary truncates the raw extracted text to roughly the tier's
// summary length. Degraded, but never empty for any text that passed the
// extraction floor.
func fallbackSummary(text string, limits plan.Limits) string {
	words := strings.Fields(text)
	if len(words) > limits.SummaryMaxWords {
		words = words[:limits.SummaryMaxWords]
	}
	return strings.Join(words, " ")
}
