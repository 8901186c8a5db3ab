// Package normalize turns raw request text into the canonical form used for
// cache keys and model input. Normalization is a pure function: deterministic,
// side-effect free, and idempotent (normalizing an already normalized string
// is a no-op).
package normalize

import (
	"regexp"
	"strings"

	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
)

var (
	urlPattern = regexp.MustCompile(
		`https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?&/=]*`,
	)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	emojiPattern = regexp.MustCompile(
		`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}]`,
	)
	repeatedPunct = regexp.MustCompile(`([!?.]){2,}`)
)

// Normalizer cleans raw text into its canonical form.
type Normalizer struct {
	maxLength int
	lowercase bool
}

// New creates a Normalizer. maxLength is the rune count the cleaned text is
// truncated to. lowercase enables case folding; it changes cache keys, so it
// must match what the model adapter expects.
func New(maxLength int, lowercase bool) *Normalizer {
	return &Normalizer{maxLength: maxLength, lowercase: lowercase}
}

// Normalize cleans raw input: URLs, email addresses, and emoji are removed,
// repeated sentence punctuation is collapsed, whitespace is collapsed to
// single spaces and trimmed, and the result is truncated to the configured
// maximum length. Truncation happens after cleanup so it never splits a
// cleanup artifact, and it rounds down to a rune boundary.
//
// Returns a validation error when the text is empty after cleanup.
func (n *Normalizer) Normalize(raw string) (string, error) {
	s := urlPattern.ReplaceAllString(raw, " ")
	s = emailPattern.ReplaceAllString(s, " ")
	s = emojiPattern.ReplaceAllString(s, " ")
	s = repeatedPunct.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")

	if n.lowercase {
		s = strings.ToLower(s)
	}

	if n.maxLength > 0 {
		if runes := []rune(s); len(runes) > n.maxLength {
			s = strings.TrimRight(string(runes[:n.maxLength]), " ")
		}
	}

	if s == "" {
		return "", apperrors.ValidationError("text is empty after normalization")
	}

	return s, nil
}
