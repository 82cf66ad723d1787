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

// OpenAISpeechConfig holds API settings for an OpenAI-compatible
// /audio/speech endpoint.
type OpenAISpeechConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	MaxChars int
	Voices   VoiceTable
}

type OpenAISpeech struct {
	cfg        OpenAISpeechConfig
	httpClient *http.Client
}

func NewOpenAISpeech(cfg OpenAISpeechConfig) *OpenAISpeech {
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 4096
	}
	return &OpenAISpeech{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OpenAISpeech) Name() string { return "openai" }

func (p *OpenAISpeech) MaxChars() int { return p.cfg.MaxChars }

func (p *OpenAISpeech) Synthesize(ctx context.Context, text, language string) (*Audio, error) {
	voice := p.cfg.Voices.Resolve(language)
	if voice == "" {
		return nil, ErrLanguageUnsupported
	}

	reqBody := map[string]interface{}{
		"model":           p.cfg.Model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal speech request failed: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build speech request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response failed: %w", err)
	}
	return &Audio{Data: data, Format: "mp3", Voice: voice}, nil
}
