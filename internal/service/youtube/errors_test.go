package youtube

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		quota     bool
		api       bool
		transport bool
		reason    string
	}{
		{name: "nil"},
		{
			name:  "quota exceeded",
			err:   &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}},
			quota: true, reason: "quotaExceeded",
		},
		{
			name:  "daily limit exceeded",
			err:   &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}},
			quota: true, reason: "dailyLimitExceeded",
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("do: %w", &googleapi.Error{Code: http.StatusNotFound, Errors: []googleapi.ErrorItem{{Reason: "videoNotFound", Message: "gone"}}}),
			api:  true, reason: "videoNotFound",
		},
		{
			name:      "status without reason",
			err:       &googleapi.Error{Code: http.StatusServiceUnavailable, Body: "<html>"},
			transport: true,
		},
		{
			name:      "network failure",
			err:       errors.New("dial tcp: connection refused"),
			transport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError("videos.list", tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}

			assert.Equal(t, tt.quota, IsQuotaExceeded(got))
			assert.Equal(t, tt.api, IsAPIError(got))
			assert.Equal(t, tt.transport, IsTransport(got))
			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), "videos.list")

			var qe *QuotaExceededError
			if errors.As(got, &qe) {
				assert.Equal(t, tt.reason, qe.Reason)
			}
			var ae *APIError
			if errors.As(got, &ae) {
				assert.Equal(t, tt.reason, ae.Reason)
				assert.Equal(t, "gone", ae.Message)
			}
		})
	}
}
