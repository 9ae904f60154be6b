// Package scoring estimates whether a video's audience sits in a target
// region from its title, description and channel location.
//
// The score is the sum of four capped sub-scores:
//
//	language  0.40  detected language is the target language
//	currency  0.30  0.10 per distinct target-currency pattern, vetoed by any foreign currency
//	cultural  0.20  0.05 per target-culture keyword
//	region    0.10  channel location resolves to the target region
//
// A candidate passes when the total reaches the threshold and no exclude
// keyword appears in the text.
package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Weight caps, in hundredths.
const (
	languageWeight = 40
	currencyWeight = 30
	culturalWeight = 20
	regionWeight   = 10

	currencyStep = 10
	keywordStep  = 5
)

// DefaultPassThreshold is the minimum total score for a pass.
const DefaultPassThreshold = 0.70

// RegionMatch classifies a channel location against the profile.
type RegionMatch string

const (
	RegionUnknown  RegionMatch = "unknown"
	RegionTarget   RegionMatch = "target"
	RegionExcluded RegionMatch = "excluded"
	RegionOther    RegionMatch = "other"
)

// SubScores holds the four weighted components.
type SubScores struct {
	Language float64
	Currency float64
	Cultural float64
	Region   float64
}

// Result is the outcome of scoring one candidate. Scores are summed as
// integer hundredths, so Total is exact and compares exactly against the
// threshold; adding the float SubScores may differ from it in the last bit.
type Result struct {
	Passed            bool
	Total             float64
	SubScores         SubScores
	HasExcludePattern bool
	RegionMatch       RegionMatch
	TargetRegion      string
}

// Engine scores candidates against a single Profile. It is safe for
// concurrent use.
type Engine struct {
	profile   Profile
	detector  LanguageDetector
	threshold float64
	logger    *zap.Logger

	regionAliases   map[string]struct{}
	excludedRegions map[string]struct{}

	cultural        []*regexp.Regexp
	exclude         []*regexp.Regexp
	currency        []*regexp.Regexp
	foreignCurrency []*regexp.Regexp
}

// Option customises an Engine.
type Option func(*Engine)

// WithPassThreshold overrides DefaultPassThreshold.
func WithPassThreshold(threshold float64) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine compiles p. A nil detector makes the language sub-score fall back
// to cultural keyword density.
func NewEngine(p Profile, detector LanguageDetector, opts ...Option) (*Engine, error) {
	p.TargetRegion = normalizeRegion(p.TargetRegion)
	if p.TargetRegion == "" {
		return nil, fmt.Errorf("profile target region is required")
	}

	e := &Engine{
		profile:         p,
		detector:        detector,
		threshold:       DefaultPassThreshold,
		logger:          zap.NewNop(),
		regionAliases:   toSet(p.RegionAliases),
		excludedRegions: toSet(p.ExcludedRegions),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.cultural, err = compileKeywords(p.CulturalKeywords); err != nil {
		return nil, err
	}
	if e.exclude, err = compileKeywords(p.ExcludeKeywords); err != nil {
		return nil, err
	}
	if e.currency, err = compilePatterns(p.CurrencyPatterns); err != nil {
		return nil, err
	}
	if e.foreignCurrency, err = compilePatterns(p.ForeignCurrencyPatterns); err != nil {
		return nil, err
	}

	return e, nil
}

// Profile returns the compiled profile.
func (e *Engine) Profile() Profile {
	return e.profile
}

// Threshold returns the pass threshold in effect.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Score evaluates one candidate. channelLocation may be empty.
func (e *Engine) Score(title, description, channelLocation string) Result {
	raw := title + " " + description
	text := strings.ToLower(raw)

	language := e.languageScore(raw, text)
	currency := e.currencyScore(text)
	cultural := min(countMatches(e.cultural, text)*keywordStep, culturalWeight)
	match := e.matchRegion(channelLocation)
	region := 0
	if match == RegionTarget {
		region = regionWeight
	}

	total := language + currency + cultural + region
	hasExclude := anyMatch(e.exclude, text)

	r := Result{
		Total: hundredths(total),
		SubScores: SubScores{
			Language: hundredths(language),
			Currency: hundredths(currency),
			Cultural: hundredths(cultural),
			Region:   hundredths(region),
		},
		HasExcludePattern: hasExclude,
		RegionMatch:       match,
		TargetRegion:      e.profile.TargetRegion,
	}
	r.Passed = float64(total) >= e.threshold*100-1e-9 && !hasExclude

	e.logger.Debug("tier1 scored",
		zap.Float64("score", r.Total),
		zap.Bool("passed", r.Passed),
		zap.Bool("exclude", hasExclude),
		zap.String("region", string(match)),
	)

	return r
}

func (e *Engine) languageScore(raw, lower string) int {
	if e.detector == nil {
		return min(countMatches(e.cultural, lower)*keywordStep, languageWeight)
	}
	tag, ok := e.detector.Detect(raw)
	if ok && sameLanguage(tag, e.profile.TargetLanguage) {
		return languageWeight
	}
	return 0
}

func (e *Engine) currencyScore(text string) int {
	if anyMatch(e.foreignCurrency, text) {
		return 0
	}
	return min(countMatches(e.currency, text)*currencyStep, currencyWeight)
}

func (e *Engine) matchRegion(location string) RegionMatch {
	loc := normalizeRegion(location)
	if loc == "" {
		return RegionUnknown
	}
	if loc == e.profile.TargetRegion {
		return RegionTarget
	}
	if _, ok := e.regionAliases[loc]; ok {
		return RegionTarget
	}
	if _, ok := e.excludedRegions[loc]; ok {
		return RegionExcluded
	}
	return RegionOther
}

func normalizeRegion(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeRegion(v)] = struct{}{}
	}
	return set
}

// compileKeywords matches each keyword as whole words, case-insensitively.
func compileKeywords(keywords []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile keyword %q: %w", kw, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// countMatches counts distinct expressions that match, not occurrences.
func countMatches(res []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range res {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func hundredths(n int) float64 {
	return float64(n) / 100
}
