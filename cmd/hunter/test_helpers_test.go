package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

type fakeVideo struct {
	ID          string
	ChannelID   string
	Title       string
	Description string
	Views       int64
	Likes       int64
	Published   time.Time
}

type fakeChannel struct {
	ID          string
	Country     string
	Subscribers int64
}

// fakeYouTube serves search, videos and channels from fixed fixtures.
type fakeYouTube struct {
	videos   []fakeVideo
	channels []fakeChannel
	calls    map[string]int
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	endpoint := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.calls[endpoint]++

	var body map[string]any
	switch endpoint {
	case "search":
		items := make([]map[string]any, 0, len(f.videos))
		for _, v := range f.videos {
			items = append(items, map[string]any{"id": map[string]any{"kind": "youtube#video", "videoId": v.ID}})
		}
		body = map[string]any{"items": items}
	case "videos":
		items := make([]map[string]any, 0, len(f.videos))
		for _, v := range f.videos {
			items = append(items, map[string]any{
				"id": v.ID,
				"snippet": map[string]any{
					"title":        v.Title,
					"description":  v.Description,
					"channelId":    v.ChannelID,
					"channelTitle": "Channel " + v.ChannelID,
					"publishedAt":  v.Published.UTC().Format(time.RFC3339),
					"thumbnails":   map[string]any{"high": map[string]any{"url": "https://i.ytimg.com/" + v.ID + ".jpg"}},
				},
				"statistics": map[string]any{
					"viewCount": itoa(v.Views),
					"likeCount": itoa(v.Likes),
				},
			})
		}
		body = map[string]any{"items": items}
	case "channels":
		items := make([]map[string]any, 0, len(f.channels))
		for _, c := range f.channels {
			items = append(items, map[string]any{
				"id":         c.ID,
				"snippet":    map[string]any{"country": c.Country},
				"statistics": map[string]any{"subscriberCount": itoa(c.Subscribers)},
			})
		}
		body = map[string]any{"items": items}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func roadTripFixture() *fakeYouTube {
	recent := time.Now().Add(-48 * time.Hour)
	return &fakeYouTube{
		videos: []fakeVideo{
			{
				ID:          "roadtrip001",
				ChannelID:   "UCroad",
				Title:       "American road trip through Texas for $100 in USD dollars",
				Description: "Chicago, California, Los Angeles, Hollywood and NYC. America on a budget in the usa.",
				Views:       12000,
				Likes:       600,
				Published:   recent,
			},
			{
				ID:        "quiet000002",
				ChannelID: "UCroad",
				Title:     "Nobody watched this",
				Views:     100,
				Published: recent,
			},
		},
		channels: []fakeChannel{{ID: "UCroad", Country: "US", Subscribers: 4000}},
	}
}

type cliEnv struct {
	dbPath string
	api    *fakeYouTube
}

// setupCLI points configuration at a temp store and a fake API server.
func setupCLI(t *testing.T, api *fakeYouTube) *cliEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	dbPath := filepath.Join(t.TempDir(), "hunter.db")
	t.Setenv("YOUTUBE_API_KEY", "test-key")
	t.Setenv("HUNTER_YOUTUBE_APIKEY", "")
	t.Setenv("HUNTER_YOUTUBE_ENDPOINT", srv.URL+"/")
	t.Setenv("HUNTER_YOUTUBE_RATELIMITDELAY", "1ms")
	t.Setenv("HUNTER_HUNTER_ITEMDELAY", "1ms")
	t.Setenv("HUNTER_SCORING_DETECTORDISABLED", "true")
	t.Setenv("HUNTER_DATABASE_PATH", dbPath)
	t.Setenv("HUNTER_LOGGING_LEVEL", "error")

	return &cliEnv{dbPath: dbPath, api: api}
}

// runCLI executes a fresh root command and returns its stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
