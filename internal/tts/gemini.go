package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gemini speech responses carry raw 16-bit mono PCM at 24kHz with no
// container. The provider returns the samples as-is; the engine adds the
// WAV header over the full concatenated payload.
const (
	geminiSampleRate    = 24000
	geminiChannels      = 1
	geminiBitsPerSample = 16
)

type GeminiSpeechConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	MaxChars int
	Voices   VoiceTable
}

type GeminiSpeech struct {
	cfg        GeminiSpeechConfig
	httpClient *http.Client
}

func NewGeminiSpeech(cfg GeminiSpeechConfig) *GeminiSpeech {
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 8000
	}
	return &GeminiSpeech{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *GeminiSpeech) Name() string { return "gemini" }

func (p *GeminiSpeech) MaxChars() int { return p.cfg.MaxChars }

func (p *GeminiSpeech) Synthesize(ctx context.Context, text, language string) (*Audio, error) {
	voice := p.cfg.Voices.Resolve(language)
	if voice == "" {
		return nil, ErrLanguageUnsupported
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": text}}},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]interface{}{
				"voiceConfig": map[string]interface{}{
					"prebuiltVoiceConfig": map[string]string{"voiceName": voice},
				},
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request failed: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model, p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build gemini request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData struct {
						Data string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse gemini json failed: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty gemini candidates")
	}

	pcm, err := base64.StdEncoding.DecodeString(parsed.Candidates[0].Content.Parts[0].InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("decode gemini audio failed: %w", err)
	}

	return &Audio{
		Data:   pcm,
		Format: "pcm",
		Voice:  voice,
		PCM: &PCMInfo{
			SampleRate:    geminiSampleRate,
			Channels:      geminiChannels,
			BitsPerSample: geminiBitsPerSample,
		},
	}, nil
}
