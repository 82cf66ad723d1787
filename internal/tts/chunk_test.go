package tts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitChunks("Just one short line.", 100)
	assert.Equal(t, []string{"Just one short line."}, chunks)
}

func TestSplitChunks_UnlimitedProvider(t *testing.T) {
	text := strings.Repeat("A sentence. ", 50)
	chunks := SplitChunks(text, 0)
	assert.Len(t, chunks, 1)
}

func TestSplitChunks_NeverSplitsMidSentenceWhenAvoidable(t *testing.T) {
	text := "Alpha is first. Bravo is second. Charlie is third."
	chunks := SplitChunks(text, 35)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, strings.HasSuffix(c, "."), "chunk %q should end on a sentence boundary", c)
		assert.LessOrEqual(t, len(c), 35)
	}
}

func TestSplitChunks_PacksSentencesUpToLimit(t *testing.T) {
	text := "One two. Three four. Five six."
	chunks := SplitChunks(text, 20)
	assert.Equal(t, []string{"One two. Three four.", "Five six."}, chunks)
}

func TestSplitChunks_OversizedSentenceFallsBackToWords(t *testing.T) {
	text := "word " + strings.Repeat("glyph ", 20) + "end."
	chunks := SplitChunks(text, 30)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 30)
		for _, w := range strings.Fields(c) {
			assert.Contains(t, []string{"word", "glyph", "end."}, w, "words must stay intact")
		}
	}
}

func TestSplitChunks_SingleWordLongerThanLimit(t *testing.T) {
	chunks := SplitChunks(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
}

func TestSplitChunks_Empty(t *testing.T) {
	assert.Nil(t, SplitChunks("   ", 10))
}

func TestSplitChunks_ReassemblyPreservesWords(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs! How vexingly quick daft zebras jump?"
	chunks := SplitChunks(text, 48)
	joined := strings.Join(chunks, " ")
	assert.Equal(t, strings.Fields(text), strings.Fields(joined))
}

func TestSplitChunks_FullwidthTerminatorsAreSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("这是一个用于测试的中文句子。", 20)
	chunks := SplitChunks(text, 100)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %q must be valid UTF-8", c)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		assert.True(t, strings.HasSuffix(c, "。"), "chunk %q should end on a sentence boundary", c)
	}
	joined := strings.ReplaceAll(strings.Join(chunks, " "), " ", "")
	assert.Equal(t, text, joined)
}

func TestSplitChunks_SpaceFreeScriptSlicesOnRuneBoundaries(t *testing.T) {
	// No spaces and no terminators: the whole text is one "word" and the
	// forced cuts must still land between runes.
	text := strings.Repeat("音声合成", 30)
	chunks := SplitChunks(text, 50)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %q must be valid UTF-8", c)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		total += utf8.RuneCountInString(c)
	}
	assert.Equal(t, 120, total)
}

func TestNormalizeScript(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeScript("  a\n\tb   c \n"))
}

func TestTruncate_CutsAtWordBoundary(t *testing.T) {
	got := Truncate("alpha bravo charlie delta", 14)
	assert.Equal(t, "alpha bravo", got)
}

func TestTruncate_NoCutNeeded(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
}

func TestTruncate_RuneSafe(t *testing.T) {
	got := Truncate(strings.Repeat("日本語", 10), 8)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 8, utf8.RuneCountInString(got))
}
