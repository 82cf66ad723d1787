package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name     string
	maxChars int
	payload  []byte
	err      error
	calls    [][]byte // recorded per-chunk inputs
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) MaxChars() int { return f.maxChars }

func (f *fakeProvider) Synthesize(_ context.Context, text, _ string) (*Audio, error) {
	f.calls = append(f.calls, []byte(text))
	if f.err != nil {
		return nil, f.err
	}
	return &Audio{Data: f.payload, Format: "mp3", Voice: "v1"}, nil
}

func plausible(n int) []byte {
	return bytes.Repeat([]byte{0xAB}, n)
}

func TestSynthesize_FirstProviderWins(t *testing.T) {
	a := &fakeProvider{name: "a", payload: plausible(4000)}
	b := &fakeProvider{name: "b", payload: plausible(4000)}
	engine := NewEngine([]Provider{a, b}, nil)

	res, err := engine.Synthesize(context.Background(), "hello world", "en", 4)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Provider)
	assert.Empty(t, res.FailedProviders)
	assert.Empty(t, b.calls, "later providers must not be called after a success")
}

func TestSynthesize_FallsThroughOnStatusError(t *testing.T) {
	a := &fakeProvider{name: "a", err: &StatusError{Code: 503}}
	b := &fakeProvider{name: "b", payload: plausible(40000)}
	engine := NewEngine([]Provider{a, b}, nil)

	res, err := engine.Synthesize(context.Background(), "hello world", "en", 4)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, []string{"a (503)"}, res.FailedProviders)
	assert.Len(t, res.Audio.Data, 40000)
}

func TestSynthesize_RejectsImplausiblySmallPayload(t *testing.T) {
	a := &fakeProvider{name: "a", payload: plausible(100)}
	b := &fakeProvider{name: "b", payload: plausible(2048)}
	engine := NewEngine([]Provider{a, b}, nil)

	res, err := engine.Synthesize(context.Background(), "hello world", "en", 4)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
	require.Len(t, res.FailedProviders, 1)
	assert.Contains(t, res.FailedProviders[0], "a (payload too small")
}

func TestSynthesize_AllProvidersExhausted(t *testing.T) {
	a := &fakeProvider{name: "a", err: &StatusError{Code: 500}}
	b := &fakeProvider{name: "b", err: ErrLanguageUnsupported}
	engine := NewEngine([]Provider{a, b}, nil)

	res, err := engine.Synthesize(context.Background(), "hello world", "tr", 4)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, "none", res.Provider)
	assert.Len(t, res.FailedProviders, 2)
	assert.Nil(t, res.Audio)
}

func TestSynthesize_ChunksConcatenateInOrder(t *testing.T) {
	// Each chunk yields a distinct payload so offsets are checkable.
	p := &chunkEchoProvider{maxChars: 25}
	engine := NewEngine([]Provider{p}, nil)

	text := "First sentence here. Second sentence here. Third sentence here."
	res, err := engine.Synthesize(context.Background(), text, "en", 10)
	require.NoError(t, err)
	assert.Equal(t, len(p.chunks), res.ChunkCount)
	require.Greater(t, res.ChunkCount, 1)

	// Concatenation law: total size is the sum, each chunk's bytes at its offset.
	offset := 0
	for _, c := range p.chunks {
		part := chunkPayload(c)
		assert.Equal(t, part, res.Audio.Data[offset:offset+len(part)])
		offset += len(part)
	}
	assert.Equal(t, offset, len(res.Audio.Data))
}

func TestSynthesize_ChunkCapDropsOverflow(t *testing.T) {
	p := &chunkEchoProvider{maxChars: 25}
	engine := NewEngine([]Provider{p}, nil)

	text := "One sentence here now. Two sentence here now. Three sentence here now."
	res, err := engine.Synthesize(context.Background(), text, "en", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunkCount)
	assert.Len(t, p.chunks, 2)
}

func TestSynthesize_EmptyText(t *testing.T) {
	engine := NewEngine([]Provider{&fakeProvider{name: "a", payload: plausible(4000)}}, nil)
	_, err := engine.Synthesize(context.Background(), "", "en", 4)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

// chunkEchoProvider returns a deterministic payload derived from the chunk
// text, padded well past the plausibility floor.
type chunkEchoProvider struct {
	maxChars int
	chunks   []string
}

func (p *chunkEchoProvider) Name() string  { return "echo" }
func (p *chunkEchoProvider) MaxChars() int { return p.maxChars }

func (p *chunkEchoProvider) Synthesize(_ context.Context, text, _ string) (*Audio, error) {
	p.chunks = append(p.chunks, text)
	return &Audio{Data: chunkPayload(text), Format: "mp3", Voice: "v1"}, nil
}

func chunkPayload(chunk string) []byte {
	return bytes.Repeat([]byte(chunk[:1]), 600+len(chunk))
}

// pcmProvider returns headerless samples the way the Gemini backend does.
type pcmProvider struct {
	maxChars int
	calls    int
}

func (p *pcmProvider) Name() string  { return "pcm" }
func (p *pcmProvider) MaxChars() int { return p.maxChars }

func (p *pcmProvider) Synthesize(_ context.Context, _, _ string) (*Audio, error) {
	p.calls++
	return &Audio{
		Data:   plausible(3000),
		Format: "pcm",
		Voice:  "v1",
		PCM:    &PCMInfo{SampleRate: 24000, Channels: 1, BitsPerSample: 16},
	}, nil
}

func TestSynthesize_PCMChunksShareOneContainer(t *testing.T) {
	p := &pcmProvider{maxChars: 25}
	engine := NewEngine([]Provider{p}, nil)

	text := "First sentence here. Second sentence here. Third sentence here."
	res, err := engine.Synthesize(context.Background(), text, "en", 10)
	require.NoError(t, err)
	require.Greater(t, res.ChunkCount, 1)

	data := res.Audio.Data
	assert.Equal(t, "wav", res.Audio.Format)
	assert.Equal(t, 1, bytes.Count(data, []byte("RIFF")),
		"concatenated chunks must share a single container header")

	samples := p.calls * 3000
	require.Len(t, data, 44+samples)
	assert.Equal(t, uint32(samples), binary.LittleEndian.Uint32(data[40:44]),
		"data chunk size must cover every synthesized chunk")
}

func TestEstimateDuration(t *testing.T) {
	text := strings.Repeat("word ", 150)
	// 150 words at 2.5 words/sec is one minute.
	assert.Equal(t, time.Minute, EstimateDuration(text, 2.5))
	assert.Equal(t, time.Minute, EstimateDuration(text, 0), "zero rate falls back to default")
}
