package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ElevenLabsConfig holds API settings for an ElevenLabs-style endpoint.
// The voice table doubles as the language allowlist: this provider only
// serves languages it has an explicit voice for, so deployments keep it
// off local-language traffic by leaving those languages unmapped.
type ElevenLabsConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	MaxChars int
	Voices   VoiceTable
}

type ElevenLabs struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 2500
	}
	return &ElevenLabs{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *ElevenLabs) Name() string { return "elevenlabs" }

func (p *ElevenLabs) MaxChars() int { return p.cfg.MaxChars }

func (p *ElevenLabs) Synthesize(ctx context.Context, text, language string) (*Audio, error) {
	voice, ok := p.cfg.Voices.Voices[language]
	if !ok {
		return nil, ErrLanguageUnsupported
	}

	reqBody := map[string]interface{}{
		"text":     text,
		"model_id": p.cfg.Model,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal elevenlabs request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(p.cfg.BaseURL, "/"), voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build elevenlabs request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read elevenlabs response failed: %w", err)
	}
	return &Audio{Data: data, Format: "mp3", Voice: voice}, nil
}
