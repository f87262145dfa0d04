// Package text turns raw posting and profile text into normalized token streams.
package text

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// DefaultMinTokenLength drops one-character noise tokens.
const DefaultMinTokenLength = 2

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	urlRe      = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	emailRe    = regexp.MustCompile(`\S+@\S+\.\S+`)
	nonAlnumRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	digitsRe   = regexp.MustCompile(`\p{N}+`)
)

// stemmerLanguages are the languages the snowball stemmer supports.
var stemmerLanguages = map[string]struct{}{
	"english":   {},
	"spanish":   {},
	"french":    {},
	"russian":   {},
	"swedish":   {},
	"norwegian": {},
	"hungarian": {},
}

// Config controls normalization. It is persisted with the model so that
// queries are normalized exactly like the corpus was.
type Config struct {
	Language       string   `json:"language"`
	MinTokenLength int      `json:"min_token_length"`
	Stem           bool     `json:"stem"`
	StripDigits    bool     `json:"strip_digits"`
	ExtraStopwords []string `json:"extra_stopwords,omitempty"`
}

// DefaultConfig returns english normalization with stemming and digit stripping.
func DefaultConfig() Config {
	return Config{
		Language:       "english",
		MinTokenLength: DefaultMinTokenLength,
		Stem:           true,
		StripDigits:    true,
	}
}

// Normalizer is a pure text -> tokens function bound to a Config.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	cfg       Config
	stopwords map[string]struct{}
}

// NewNormalizer validates cfg and builds the stopword set for its language.
func NewNormalizer(cfg Config) (*Normalizer, error) {
	cfg.Language = strings.ToLower(strings.TrimSpace(cfg.Language))
	if cfg.Language == "" {
		cfg.Language = "english"
	}
	if _, ok := stemmerLanguages[cfg.Language]; !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidArgument, cfg.Language)
	}
	if cfg.MinTokenLength < 0 {
		return nil, fmt.Errorf("%w: min token length must be >= 0, got %d", domain.ErrInvalidArgument, cfg.MinTokenLength)
	}

	stop := make(map[string]struct{})
	for _, w := range builtinStopwords(cfg.Language) {
		stop[w] = struct{}{}
	}
	for _, w := range cfg.ExtraStopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Normalizer{cfg: cfg, stopwords: stop}, nil
}

// Config returns the resolved configuration.
func (n *Normalizer) Config() Config { return n.cfg }

// Normalize lowercases, strips markup, URLs and punctuation, splits on
// whitespace, drops stopwords and short tokens, then optionally stems.
func (n *Normalizer) Normalize(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ToLower(s)
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = urlRe.ReplaceAllString(s, " ")
	s = emailRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	if n.cfg.StripDigits {
		s = digitsRe.ReplaceAllString(s, " ")
	}

	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) < n.cfg.MinTokenLength {
			continue
		}
		if n.cfg.Stem {
			tok = n.stem(tok)
		}
		out = append(out, tok)
	}
	return out
}

// NormalizeString returns the normalized tokens joined by single spaces.
func (n *Normalizer) NormalizeString(s string) string {
	return strings.Join(n.Normalize(s), " ")
}

// NormalizeFields normalizes each field and joins the non-empty results.
func (n *Normalizer) NormalizeFields(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if norm := n.NormalizeString(f); norm != "" {
			parts = append(parts, norm)
		}
	}
	return strings.Join(parts, " ")
}

func (n *Normalizer) stem(tok string) string {
	// Language was validated in NewNormalizer, so Stem cannot fail here.
	stemmed, err := snowball.Stem(tok, n.cfg.Language, true)
	if err != nil || stemmed == "" {
		return tok
	}
	return stemmed
}
