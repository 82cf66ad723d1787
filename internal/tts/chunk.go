package tts

import (
	"strings"
	"unicode/utf8"
)

// SplitChunks cuts text into pieces no longer than maxChars runes,
// preferring sentence boundaries. A single sentence longer than maxChars is
// split on word boundaries instead; splitting mid-word happens only for an
// unbroken run of non-space characters longer than the limit. Cuts always
// land on rune boundaries, so space-free scripts never yield invalid UTF-8.
func SplitChunks(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current []rune
	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
	}

	for _, sentence := range splitSentences(text) {
		runes := []rune(sentence)
		if len(runes) > maxChars {
			flush()
			chunks = append(chunks, splitWords(sentence, maxChars)...)
			continue
		}
		if len(current) > 0 && len(current)+1+len(runes) > maxChars {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, runes...)
	}
	flush()
	return chunks
}

// splitSentences breaks text after terminal punctuation or newlines.
// Fullwidth terminators (CJK) end a sentence unconditionally; ASCII ones
// need a following space or end of text, so decimals and dotted
// abbreviations stay intact.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		boundary := c == '\n'
		switch c {
		case '。', '！', '？':
			i = consumeClosers(runes, i+1) - 1
			boundary = true
		case '.', '!', '?':
			j := consumeClosers(runes, i+1)
			if j >= len(runes) || runes[j] == ' ' || runes[j] == '\n' {
				i = j - 1
				boundary = true
			}
		}
		if boundary {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// consumeClosers skips trailing quotes and brackets so they stay attached
// to the sentence they close.
func consumeClosers(runes []rune, j int) int {
	for j < len(runes) {
		switch runes[j] {
		case '"', '\'', ')', '）', '」', '』':
			j++
		default:
			return j
		}
	}
	return j
}

func splitWords(sentence string, maxChars int) []string {
	var chunks []string
	var current []rune
	for _, field := range strings.Fields(sentence) {
		word := []rune(field)
		for len(word) > maxChars {
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = current[:0]
			}
			chunks = append(chunks, string(word[:maxChars]))
			word = word[maxChars:]
		}
		if len(current) > 0 && len(current)+1+len(word) > maxChars {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, word...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// NormalizeScript collapses runs of whitespace to single spaces and trims
// the result, so provider character limits see the text's real length.
func NormalizeScript(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate caps text at maxChars runes, cutting back to the last word
// boundary when one exists in the tail.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	cut := []rune(text)[:maxChars]
	for i := len(cut) - 1; i > maxChars/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimSpace(string(cut))
}
