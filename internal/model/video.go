// Package model holds the value types returned by the remote video API.
package model

import "time"

// VideoMetadata is the subset of a video resource the hunter consumes.
type VideoMetadata struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	// PublishedAt is the raw RFC 3339 upload timestamp as returned by the API.
	PublishedAt  string    `json:"published_at"`
	UploadedAt   time.Time `json:"uploaded_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// ChannelDetails is the subset of a channel resource the hunter consumes.
type ChannelDetails struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	SubscriberCount       int64  `json:"subscriber_count"`
	HiddenSubscriberCount bool   `json:"hidden_subscriber_count"`
	// Location is an ISO 3166 country code, or empty when the channel has none.
	Location string `json:"location"`
}
