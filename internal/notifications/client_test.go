package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path     string
	title    string
	priority string
	tags     string
	body     string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var got []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, capturedRequest{
			path:     r.URL.Path,
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNotifyRunSuccess(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK)
	c := NewClient(srv.URL+"/", "fmarket-nav", true, "default")

	err := c.NotifyRun(context.Background(), RunOutcome{RunID: "abc", Records: 3, Updated: 1, Appended: 2})
	require.NoError(t, err)

	require.Len(t, *got, 1)
	req := (*got)[0]
	assert.Equal(t, "/fmarket-nav", req.path)
	assert.Equal(t, "fmarket NAV sync", req.title)
	assert.Equal(t, "default", req.priority)
	assert.Contains(t, req.body, "Saved to Google Sheets! (Updated: 1, Appended: 2)")
	assert.Contains(t, req.body, "Run abc")
}

func TestNotifyRunNoData(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK)
	c := NewClient(srv.URL, "fmarket-nav", true, "")

	require.NoError(t, c.NotifyRun(context.Background(), RunOutcome{}))
	require.Len(t, *got, 1)
	assert.Equal(t, "No data", (*got)[0].body)
	assert.Empty(t, (*got)[0].priority)
}

func TestNotifyRunFailure(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK)
	c := NewClient(srv.URL, "fmarket-nav", true, "")

	err := c.NotifyRun(context.Background(), RunOutcome{Updated: 2, Err: errors.New("sheet write failed")})
	require.NoError(t, err)

	req := (*got)[0]
	assert.Equal(t, "fmarket NAV sync failed", req.title)
	assert.Equal(t, "warning", req.tags)
	assert.Contains(t, req.body, "Error: sheet write failed")
	assert.Contains(t, req.body, "Updated: 2, Appended: 0")
}

func TestDisabledClientSendsNothing(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK)

	for _, c := range []*Client{
		NewClient(srv.URL, "fmarket-nav", false, ""),
		NewClient(srv.URL, "", true, ""),
	} {
		assert.False(t, c.Enabled())
		require.NoError(t, c.NotifyRun(context.Background(), RunOutcome{Records: 1}))
	}
	assert.Empty(t, *got)
}

func TestHTTPErrorCategories(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "auth"},
		{http.StatusForbidden, "auth"},
		{http.StatusTooManyRequests, "rate_limit"},
		{http.StatusNotFound, "client"},
		{http.StatusBadGateway, "server"},
	}

	for _, tt := range tests {
		srv, _ := newTestServer(t, tt.status)
		c := NewClient(srv.URL, "fmarket-nav", true, "")

		err := c.SendNotification(context.Background(), "t", "m")
		var nerr *NotificationError
		require.ErrorAs(t, err, &nerr, "status %d", tt.status)
		assert.Equal(t, tt.want, nerr.Type)
		assert.Equal(t, tt.status, nerr.StatusCode)
	}
}

func TestNetworkError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	c := NewClient(url, "fmarket-nav", true, "")
	err := c.SendNotification(context.Background(), "t", "m")

	var nerr *NotificationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "network", nerr.Type)
}
