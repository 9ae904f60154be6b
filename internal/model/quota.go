package model

import "time"

// APIQuotaUsage tracks one day of YouTube API quota consumption.
type APIQuotaUsage struct {
	ID                int64     `json:"id"`
	Date              string    `json:"date"`
	QuotaUsed         int       `json:"quota_used"`
	QuotaLimit        int       `json:"quota_limit"`
	OperationsCount   int       `json:"operations_count"`
	SearchCalls       int       `json:"search_calls"`
	VideosListCalls   int       `json:"videos_list_calls"`
	ChannelsListCalls int       `json:"channels_list_calls"`
	OtherCalls        int       `json:"other_calls"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// QuotaInfo provides current quota status
type QuotaInfo struct {
	Date            string `json:"date"`
	QuotaUsed       int    `json:"quota_used"`
	QuotaLimit      int    `json:"quota_limit"`
	QuotaRemaining  int    `json:"quota_remaining"`
	OperationsCount int    `json:"operations_count"`
}

// Quota costs of the endpoints the hunter calls.
const (
	CostSearchList   = 100
	CostVideosList   = 1
	CostChannelsList = 1
)

// Operation names used for quota accounting.
const (
	OpSearchList   = "search.list"
	OpVideosList   = "videos.list"
	OpChannelsList = "channels.list"
)
