package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"studyvoice/internal/ai"
)

const translateSystemPrompt = `You are a translator for spoken narration. Translate the supplied text faithfully and completely. Respond with the translation only: no commentary, no notes, no quotation marks around the output.`

// minTranslationChars is the plausibility floor: a translation this short
// for any non-trivial script is a refusal or an error page, not a
// translation.
const minTranslationChars = 16

// translate rewrites the TTS script into the target language. Best-effort:
// on any failure the caller keeps the original text and records that the
// translation was not applied.
func (p *Pipeline) translate(ctx context.Context, script, language string) (string, bool) {
	raw, err := p.llm.Complete(ctx, p.cfg.Translate, []ai.ChatMessage{
		{Role: "system", Content: translateSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Translate into %s:\n\n%s", language, script)},
	})
	if err != nil {
		p.logger.Warn("translation call failed, keeping original language",
			zap.String("language", language), zap.Error(err))
		return "", false
	}

	translated := strings.TrimSpace(raw)
	if len(translated) < minTranslationChars || len(translated)*10 < len(script) {
		p.logger.Warn("translation implausibly short, keeping original language",
			zap.String("language", language),
			zap.Int("translated_chars", len(translated)),
			zap.Int("script_chars", len(script)))
		return "", false
	}
	return translated, true
}
