package tts

import (
	"context"
	"errors"
	"strconv"
)

// Audio is one synthesized payload.
type Audio struct {
	Data   []byte
	Format string // "mp3", "wav", or "pcm" (headerless samples)
	Voice  string
	// PCM describes headerless sample data. Set only when Format is "pcm";
	// the engine wraps the concatenated samples into a WAV container once,
	// so multi-chunk runs never end up with a header per chunk.
	PCM *PCMInfo
}

// PCMInfo describes the sample layout of a headerless PCM payload.
type PCMInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Provider is one speech-synthesis backend. Implementations wrap a single
// HTTP API and must be safe for concurrent use.
type Provider interface {
	Name() string
	// MaxChars is the provider's per-request text limit; 0 means unlimited.
	MaxChars() int
	Synthesize(ctx context.Context, text, language string) (*Audio, error)
}

// ErrLanguageUnsupported is returned by a provider whose voice table has no
// entry for the requested language. The engine treats it like any other
// provider failure and moves on.
var ErrLanguageUnsupported = errors.New("language not supported")

// StatusError is a non-2xx HTTP response from a provider. Its Error string
// is just the status code, which keeps the failed-provider diagnostics in
// the compact "name (503)" form.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return strconv.Itoa(e.Code)
}

// VoiceTable maps a language code to the provider-specific voice id.
// Deployments swap tables through configuration, not code.
type VoiceTable struct {
	Voices  map[string]string
	Default string
}

// Resolve returns the voice for language, the default voice when the
// language is unmapped, or "" when the provider cannot serve it at all.
func (t VoiceTable) Resolve(language string) string {
	if v, ok := t.Voices[language]; ok {
		return v
	}
	return t.Default
}
