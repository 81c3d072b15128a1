// Package extract recovers a single JSON value from raw LLM output.
// Model responses are free text that may wrap the answer in prose or
// markdown, or repeat earlier (wrong) attempts before the final answer,
// so extraction is a ladder of progressively more forgiving parses.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the model produced no text at all.
	ErrEmptyResponse = errors.New("extract: empty response")

	// ErrMalformedResponse is returned when no JSON value can be recovered.
	ErrMalformedResponse = errors.New("extract: no JSON value found in response")
)

var (
	// Non-greedy so that two side-by-side objects yield two matches; the
	// last match is the answer in chain-of-thought style responses.
	objectPattern = regexp.MustCompile(`(?s)\{.*?\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*?\]`)
)

// Extract recovers a single JSON value from raw response text. The steps,
// first success wins:
//
//  1. parse the whole trimmed text as JSON
//  2. strip a surrounding ``` fence (and a "json" language tag) and retry
//  3. take the LAST brace-delimited {...} substring and parse it
//  4. failing that, take the last bracket-delimited [...] substring
//
// A successfully parsed non-object (e.g. an array) is returned as-is;
// rejecting it is the validator's job, not the extractor's.
func Extract(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	if v, err := parseJSON(text); err == nil {
		return v, nil
	}

	cleaned := stripFence(text)
	if v, err := parseJSON(cleaned); err == nil {
		return v, nil
	}

	candidate := ""
	if matches := objectPattern.FindAllString(cleaned, -1); len(matches) > 0 {
		candidate = matches[len(matches)-1]
	} else if matches := arrayPattern.FindAllString(cleaned, -1); len(matches) > 0 {
		candidate = matches[len(matches)-1]
	}
	if candidate == "" {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, snippet(text))
	}

	v, err := parseJSON(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrMalformedResponse, snippet(candidate), err)
	}
	return v, nil
}

func parseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// stripFence removes a leading/trailing triple-backtick fence, plus an
// immediately following language tag such as "json".
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSpace(text[3 : len(text)-3])
	if rest, ok := strings.CutPrefix(inner, "json"); ok {
		inner = strings.TrimSpace(rest)
	}
	return inner
}

// snippet truncates text for error messages.
func snippet(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
