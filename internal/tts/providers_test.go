package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAISpeech_Synthesize(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11}, 2000)
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(payload)
	}))
	defer srv.Close()

	p := NewOpenAISpeech(OpenAISpeechConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "tts-1",
		Voices:  VoiceTable{Voices: map[string]string{"en": "alloy"}, Default: "alloy"},
	})

	audio, err := p.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, payload, audio.Data)
	assert.Equal(t, "mp3", audio.Format)
	assert.Equal(t, "alloy", audio.Voice)
	assert.Equal(t, "hello", gotBody["input"])
	assert.Equal(t, "alloy", gotBody["voice"])
}

func TestOpenAISpeech_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAISpeech(OpenAISpeechConfig{
		BaseURL: srv.URL,
		Voices:  VoiceTable{Default: "alloy"},
	})

	_, err := p.Synthesize(context.Background(), "hello", "en")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.Code)
	assert.Equal(t, "503", err.Error())
}

func TestGeminiSpeech_ReturnsRawPCM(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x22}, 1500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]interface{}{
						{"inlineData": map[string]string{"data": base64.StdEncoding.EncodeToString(pcm)}},
					},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewGeminiSpeech(GeminiSpeechConfig{
		BaseURL: srv.URL,
		APIKey:  "k",
		Model:   "gemini-tts",
		Voices:  VoiceTable{Default: "Kore"},
	})

	audio, err := p.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	// Headerless samples plus a descriptor; the engine wraps the payload
	// once after concatenating all chunks.
	assert.Equal(t, "pcm", audio.Format)
	assert.Equal(t, pcm, audio.Data)
	require.NotNil(t, audio.PCM)
	assert.Equal(t, 24000, audio.PCM.SampleRate)
	assert.Equal(t, 1, audio.PCM.Channels)
	assert.Equal(t, 16, audio.PCM.BitsPerSample)
}

func TestElevenLabs_LanguageAllowlist(t *testing.T) {
	p := NewElevenLabs(ElevenLabsConfig{
		BaseURL: "http://unused",
		Voices:  VoiceTable{Voices: map[string]string{"en": "rachel"}, Default: "rachel"},
	})

	// The default voice must not leak into unmapped languages.
	_, err := p.Synthesize(context.Background(), "merhaba", "tr")
	assert.ErrorIs(t, err, ErrLanguageUnsupported)
}

func TestElevenLabs_Synthesize(t *testing.T) {
	payload := bytes.Repeat([]byte{0x33}, 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/rachel", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("xi-api-key"))
		w.Write(payload)
	}))
	defer srv.Close()

	p := NewElevenLabs(ElevenLabsConfig{
		BaseURL: srv.URL,
		APIKey:  "k",
		Model:   "eleven_multilingual_v2",
		Voices:  VoiceTable{Voices: map[string]string{"en": "rachel"}},
	})

	audio, err := p.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, payload, audio.Data)
}

func TestVoiceTable_Resolve(t *testing.T) {
	tbl := VoiceTable{Voices: map[string]string{"en": "a", "tr": "b"}, Default: "a"}
	assert.Equal(t, "b", tbl.Resolve("tr"))
	assert.Equal(t, "a", tbl.Resolve("fr"), "unmapped language falls back to default")

	empty := VoiceTable{}
	assert.Equal(t, "", empty.Resolve("en"))
}
