package scoring

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// LanguageDetector guesses the language of free text. ok is false when the
// text is too short or ambiguous to classify.
type LanguageDetector interface {
	Detect(text string) (tag language.Tag, ok bool)
}

// WhatlangDetector is a LanguageDetector backed by whatlanggo's trigram model.
type WhatlangDetector struct {
	// MinConfidence discards detections below this confidence.
	MinConfidence float64
}

// NewWhatlangDetector returns a detector accepting any confident guess.
func NewWhatlangDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

func (d *WhatlangDetector) Detect(text string) (language.Tag, bool) {
	if strings.TrimSpace(text) == "" {
		return language.Und, false
	}

	info := whatlanggo.Detect(text)
	if info.Confidence < d.MinConfidence {
		return language.Und, false
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return language.Und, false
	}

	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// sameLanguage compares base languages, so en-US matches en.
func sameLanguage(a, b language.Tag) bool {
	ba, _ := a.Base()
	bb, _ := b.Base()
	return ba == bb
}
