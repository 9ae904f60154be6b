package models

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a stored video.
type State string

const (
	StateRaw       State = "RAW"
	StateScraped   State = "SCRAPED"
	StateProcessed State = "PROCESSED"
	StateFailed    State = "FAILED"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateRaw, StateScraped, StateProcessed, StateFailed:
		return true
	}
	return false
}

// Video is one qualified video as persisted by the hunter. VideoID is the
// platform identifier and is unique; ID is the internal row key and is zero
// until the row has been inserted.
type Video struct {
	ID              int64     `db:"id" json:"id"`
	VideoID         string    `db:"video_id" json:"video_id"`
	Title           string    `db:"title" json:"title"`
	ChannelID       string    `db:"channel_id" json:"channel_id"`
	ChannelTitle    string    `db:"channel_title" json:"channel_title"`
	SubscriberCount int64     `db:"subscriber_count" json:"subscriber_count"`
	UploadedAt      time.Time `db:"uploaded_at" json:"uploaded_at"`
	UploadDaysAgo   int       `db:"upload_days_ago" json:"upload_days_ago"`
	Views           int64     `db:"views" json:"views"`
	Likes           int64     `db:"likes" json:"likes"`
	ThumbnailURL    string    `db:"thumbnail_url" json:"thumbnail_url"`
	Description     string    `db:"description" json:"description"`
	State           State     `db:"state" json:"state"`
	ErrorMessage    *string   `db:"error_message" json:"error_message,omitempty"`

	PassedViews        bool `db:"passed_views" json:"passed_views"`
	PassedUploadAge    bool `db:"passed_upload_age" json:"passed_upload_age"`
	PassedSubscribers  bool `db:"passed_subscribers" json:"passed_subscribers"`
	PassedViewSubRatio bool `db:"passed_view_sub_ratio" json:"passed_view_sub_ratio"`

	Tier1Validated     bool    `db:"tier1_validated" json:"tier1_validated"`
	Tier1Score         float64 `db:"tier1_score" json:"tier1_score"`
	Tier1LanguageScore float64 `db:"tier1_language_score" json:"tier1_language_score"`
	Tier1CurrencyScore float64 `db:"tier1_currency_score" json:"tier1_currency_score"`
	Tier1CulturalScore float64 `db:"tier1_cultural_score" json:"tier1_cultural_score"`
	Tier1RegionScore   float64 `db:"tier1_region_score" json:"tier1_region_score"`
	Tier1HasExclude    bool    `db:"tier1_has_exclude" json:"tier1_has_exclude"`
	ChannelLocation    string  `db:"channel_location" json:"channel_location"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewVideo creates a RAW Video with the given identity. Timestamps are left
// for the store to assign.
func NewVideo(videoID, channelID, title string, uploadedAt time.Time) *Video {
	return &Video{
		VideoID:    videoID,
		ChannelID:  channelID,
		Title:      title,
		UploadedAt: uploadedAt.UTC(),
		State:      StateRaw,
	}
}

// PassedHardFilter reports whether every hard-filter flag is set.
func (v *Video) PassedHardFilter() bool {
	return v.PassedViews && v.PassedUploadAge && v.PassedSubscribers && v.PassedViewSubRatio
}

// MarkFailed moves the video to FAILED with a reason.
func (v *Video) MarkFailed(reason string) {
	v.State = StateFailed
	v.ErrorMessage = &reason
}

// URL is the watch page of the video.
func (v *Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// ChannelURL is the channel page of the uploader.
func (v *Video) ChannelURL() string {
	return "https://www.youtube.com/channel/" + v.ChannelID
}

// VPH is views per hour since upload, using the age captured at ingest.
func (v *Video) VPH() float64 {
	if v.UploadDaysAgo <= 0 {
		return 0
	}
	return float64(v.Views) / float64(v.UploadDaysAgo*24)
}

// EngagementRate is likes as a percentage of views.
func (v *Video) EngagementRate() float64 {
	if v.Views <= 0 {
		return 0
	}
	return float64(v.Likes) / float64(v.Views) * 100
}

// CountryName resolves ChannelLocation to a display name.
func (v *Video) CountryName() string {
	return CountryName(v.ChannelLocation)
}

var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"NZ": "New Zealand",
	"IN": "India",
	"ID": "Indonesia",
	"SG": "Singapore",
	"MY": "Malaysia",
	"PH": "Philippines",
	"TH": "Thailand",
	"VN": "Vietnam",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"NL": "Netherlands",
	"BR": "Brazil",
	"MX": "Mexico",
	"JP": "Japan",
	"KR": "South Korea",
}

// CountryName maps an ISO country code to an English name. Unknown codes are
// returned unchanged and empty input yields "Unknown".
func CountryName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "Unknown"
	}
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}

// FormatCount renders counts compactly: 950, 12.3K, 1.5M.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
