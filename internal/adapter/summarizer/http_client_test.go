package summarizer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHTTPClient_Summarize(t *testing.T) {
	var gotURL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/new_entity", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotURL = body["url"]

		w.Write([]byte(`{"result": {
			"name": "Levain Bakery",
			"summary": "Cookies.",
			"yelp_data": {"rating": 4.5, "review_count": 120},
			"google_maps_data": {"total_ratings": 900},
			"linked_in_data": {"company_size": "51-200"}
		}}`))
	})

	summary, err := client.Summarize(context.Background(), "https://levainbakery.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://levainbakery.com/", gotURL)
	assert.Equal(t, "Levain Bakery", summary.Name)
	assert.Equal(t, "Cookies.", summary.Summary)
	require.NotNil(t, summary.YelpData)
	require.NotNil(t, summary.YelpData.ReviewCount)
	assert.Equal(t, "120", summary.YelpData.ReviewCount.String())
	require.NotNil(t, summary.GoogleMapsData)
	require.NotNil(t, summary.GoogleMapsData.TotalRatings)
	assert.Equal(t, "900", summary.GoogleMapsData.TotalRatings.String())
	require.NotNil(t, summary.LinkedInData)
	assert.Equal(t, "51-200", summary.LinkedInData.CompanySize.String())
}

func TestHTTPClient_EntityNameFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"entity_name": "Acme", "summary": "Widgets."}}`))
	})

	summary, err := client.Summarize(context.Background(), "https://acme.test")
	require.NoError(t, err)
	assert.Equal(t, "Acme", summary.Name)
	assert.Nil(t, summary.YelpData)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "service error with detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"detail": "fetch failed"}`))
			},
			wantMsg: "fetch failed",
		},
		{
			name: "plain error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			wantMsg: "502",
		},
		{
			name: "null result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"result": null}`))
			},
			wantMsg: "no result",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{`))
			},
			wantMsg: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Summarize(context.Background(), "https://acme.test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(srv.URL, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := client.Summarize(context.Background(), "https://acme.test")
	assert.Error(t, err)
}
