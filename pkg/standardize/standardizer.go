// Package standardize resolves free-text place descriptions against a
// gazetteer.
//
// Text is tokenized into comma-separated levels, and levels are matched most
// general first ("Illinois" before "Springfield"). Each level narrows the
// candidates to places contained in the previous match. Unmatched words are
// skipped and pushed into a new level, intermediate levels missing from the
// text are tolerated, and trailing type words ("Township") filter
// candidates. Remaining ties are scored by country size and place level.
//
// A Standardizer holds no mutable state and is safe for concurrent use; the
// ErrorHandler it reports to must be too.
package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/normalize"
)

// Mode governs how partial matches are returned.
type Mode int

const (
	// ModeBest returns whatever was matched, however partial.
	ModeBest Mode = iota
	// ModeRequired returns nothing unless the most specific level matched.
	ModeRequired
	// ModeNew returns an unpersisted place for the most specific unmatched
	// level, located in the best match.
	ModeNew
)

func (m Mode) String() string {
	switch m {
	case ModeBest:
		return "best"
	case ModeRequired:
		return "required"
	case ModeNew:
		return "new"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "best", "required" or "new", in any case. The empty
// string is ModeBest.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best":
		return ModeBest, nil
	case "required":
		return ModeRequired, nil
	case "new":
		return ModeNew, nil
	}
	return ModeBest, fmt.Errorf("unknown mode %q", s)
}

// PlaceScore is one ranked result.
type PlaceScore struct {
	Place *gazetteer.Place `json:"place"`
	Score float64          `json:"score"`
}

const (
	bucketSmall = iota
	bucketMedium
	bucketLarge
)

// Standardizer resolves text against one immutable gazetteer index.
type Standardizer struct {
	idx  gazetteer.Index
	norm *normalize.Normalizer

	typeWords     map[string]bool
	abbreviations map[string]string
	noiseWords    map[string]bool

	buckets            map[int]int
	weights            [3][]float64
	primaryMatchWeight float64
	maxLevels          int
	referenceCountry   int

	handler ErrorHandler
	logger  *slog.Logger
}

// Option configures a Standardizer.
type Option func(*Standardizer)

// WithErrorHandler sets the handler used when a Request carries none.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Standardizer) {
		s.handler = h
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Standardizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Standardizer over idx. A nil cfg means DefaultConfig().
// The index must be fully loaded; it is never written to.
func New(idx gazetteer.Index, cfg *Config, opts ...Option) (*Standardizer, error) {
	if idx == nil {
		return nil, ErrNoIndex
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Standardizer{
		idx:                idx,
		typeWords:          toSet(cfg.TypeWords),
		abbreviations:      make(map[string]string, len(cfg.Abbreviations)),
		noiseWords:         toSet(cfg.NoiseWords),
		buckets:            make(map[int]int, len(cfg.LargeCountries)+len(cfg.MediumCountries)),
		primaryMatchWeight: cfg.PrimaryMatchWeight,
		maxLevels:          cfg.MaxLevels,
		referenceCountry:   cfg.ReferenceCountry,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for k, v := range cfg.Abbreviations {
		s.abbreviations[strings.ToLower(k)] = strings.ToLower(v)
	}
	for _, id := range cfg.MediumCountries {
		s.buckets[id] = bucketMedium
	}
	for _, id := range cfg.LargeCountries {
		s.buckets[id] = bucketLarge
	}
	s.weights[bucketSmall] = append([]float64(nil), cfg.SmallCountryLevelWeights...)
	s.weights[bucketMedium] = append([]float64(nil), cfg.MediumCountryLevelWeights...)
	s.weights[bucketLarge] = append([]float64(nil), cfg.LargeCountryLevelWeights...)

	replacements := normalize.DefaultReplacements()
	for r, v := range cfg.replacements() {
		replacements[r] = v
	}
	s.norm = normalize.New(replacements, normalize.WithLogger(s.logger))
	return s, nil
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// Request is one resolution call.
type Request struct {
	Text string
	// DefaultCountry is accepted for API compatibility and currently has no
	// effect on the result.
	DefaultCountry string
	Mode           Mode
	// MaxResults bounds the result list; zero or less means no bound.
	MaxResults int
	// Handler overrides the handler given to New for this call.
	Handler ErrorHandler
}

// Standardize returns the best match for text, or nil.
func (s *Standardizer) Standardize(ctx context.Context, text string) (*gazetteer.Place, error) {
	return s.StandardizeDefault(ctx, text, "")
}

// StandardizeDefault is Standardize with a default country.
func (s *Standardizer) StandardizeDefault(ctx context.Context, text, defaultCountry string) (*gazetteer.Place, error) {
	res, err := s.StandardizeN(ctx, text, defaultCountry, ModeBest, 1)
	if err != nil || len(res) == 0 {
		return nil, err
	}
	return res[0].Place, nil
}

// StandardizeN returns up to maxResults ranked matches for text.
func (s *Standardizer) StandardizeN(ctx context.Context, text, defaultCountry string, mode Mode, maxResults int) ([]PlaceScore, error) {
	return s.Resolve(ctx, Request{Text: text, DefaultCountry: defaultCountry, Mode: mode, MaxResults: maxResults})
}

// Place returns the gazetteer entry for id.
func (s *Standardizer) Place(ctx context.Context, id int) (*gazetteer.Place, error) {
	return s.idx.Place(ctx, id)
}

// FullName renders "Name, Parent, ..., Country" for p.
func (s *Standardizer) FullName(ctx context.Context, p *gazetteer.Place) (string, error) {
	return gazetteer.FullName(ctx, s.idx, p)
}

// Tokenize exposes the normalizer the standardizer matches with.
func (s *Standardizer) Tokenize(text string) normalize.Result {
	return s.norm.Tokenize(text)
}

// Handler returns the handler set with WithErrorHandler, or nil.
func (s *Standardizer) Handler() ErrorHandler { return s.handler }

// MaxLevels is the number of level weights per country bucket.
func (s *Standardizer) MaxLevels() int {
	return s.maxLevels
}
