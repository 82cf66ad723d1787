// Package jsonx recovers structured JSON from language-model output. Model
// responses routinely wrap the payload in Markdown fences or surround it
// with prose, so a strict json.Unmarshal on the raw text is not enough.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no json payload found")

// Decode extracts the first balanced JSON object or array from raw and
// unmarshals it into dst.
func Decode(raw string, dst interface{}) error {
	payload, err := Extract(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), dst)
}

// Extract strips Markdown code fences and returns the first balanced JSON
// object or array found in raw.
func Extract(raw string) (string, error) {
	s := StripFences(raw)

	start := -1
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// StripFences removes a surrounding Markdown code fence, with or without a
// language tag, leaving other text untouched.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop a language tag such as "json" on the fence line.
		firstLine := strings.TrimSpace(s[:idx])
		if len(firstLine) <= 16 && !strings.ContainsAny(firstLine, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
