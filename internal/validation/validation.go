package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	videoIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	regionRegex    = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Search queries longer than this are rejected by the API.
const maxQueryLength = 500

type Validator struct {
	maxTargetCount    int
	validationEnabled bool
}

func New(maxTargetCount int, enabled bool) *Validator {
	return &Validator{
		maxTargetCount:    maxTargetCount,
		validationEnabled: enabled,
	}
}

// ValidateRun checks the inputs of one acquisition run.
func (v *Validator) ValidateRun(query string, targetCount int, regionCode string) error {
	if !v.validationEnabled {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("search query is required")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return fmt.Errorf("search query exceeds %d characters", maxQueryLength)
	}

	if targetCount <= 0 {
		return fmt.Errorf("target count must be positive, got %d", targetCount)
	}
	if v.maxTargetCount > 0 && targetCount > v.maxTargetCount {
		return fmt.Errorf("target count %d exceeds maximum of %d", targetCount, v.maxTargetCount)
	}

	if regionCode != "" && !regionRegex.MatchString(regionCode) {
		return fmt.Errorf("invalid region code: %s", regionCode)
	}

	return nil
}

func (v *Validator) IsValidVideoID(videoID string) bool {
	return videoIDRegex.MatchString(videoID)
}

func (v *Validator) IsValidChannelID(channelID string) bool {
	return channelIDRegex.MatchString(channelID)
}
