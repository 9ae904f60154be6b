package scoring

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Profile describes one target audience region: the evidence that counts for
// it and the evidence that vetoes it.
type Profile struct {
	TargetRegion   string
	TargetLanguage language.Tag

	// RegionAliases are long-form names that resolve to TargetRegion.
	RegionAliases []string
	// ExcludedRegions are codes and names of explicitly out-of-scope regions.
	ExcludedRegions []string

	CulturalKeywords []string
	ExcludeKeywords  []string

	// CurrencyPatterns and ForeignCurrencyPatterns are regular expressions
	// matched case-insensitively against title and description.
	CurrencyPatterns        []string
	ForeignCurrencyPatterns []string
}

// DefaultProfile is the United States, English-language audience.
func DefaultProfile() Profile {
	return Profile{
		TargetRegion:   "US",
		TargetLanguage: language.English,
		RegionAliases:  []string{"USA", "UNITED STATES", "UNITED STATES OF AMERICA"},
		ExcludedRegions: []string{
			"IN", "INDIA", "PK", "PAKISTAN", "BD", "BANGLADESH",
		},
		CulturalKeywords: []string{
			"american", "usa", "united states", "us culture",
			"western", "america", "us history", "us politics",
			"us election", "us economy", "hollywood", "nyc",
			"los angeles", "chicago", "texas", "california",
			"us constitution", "us military", "us news",
		},
		ExcludeKeywords: []string{
			"indian", "india", "bollywood", "desi", "hindu",
			"pakistan", "paki", "karachi", "mumbai", "delhi",
			"bangalore", "hyderabad", "chennai", "srilanka",
			"nepal", "bangla", "hindi", "telugu", "tamil",
			"urdu", "cricket india", "ipl", "bhai", "jiyo",
		},
		CurrencyPatterns: []string{
			`\$\d+`,
			`\busd\b`,
			`dollar`,
			` dollars?\b`,
		},
		ForeignCurrencyPatterns: []string{
			`₹`,
			`\binr\b`,
			`\brs\.?\s?\d+`,
			`rupee`,
			` rupees?\b`,
		},
	}
}

var profiles = map[string]func() Profile{
	"US": DefaultProfile,
}

// ProfileFor returns the built-in profile for a region code. When lang is
// non-empty it overrides the profile's target language.
func ProfileFor(region, lang string) (Profile, error) {
	build, ok := profiles[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return Profile{}, fmt.Errorf("no scoring profile for region %q", region)
	}
	p := build()

	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return Profile{}, fmt.Errorf("invalid target language %q: %w", lang, err)
		}
		p.TargetLanguage = tag
	}

	return p, nil
}
