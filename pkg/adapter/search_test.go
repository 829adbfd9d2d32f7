package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/gt"
)

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Method, http.MethodPost)

		var req map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.Equal(t, req["query"], "best time to sow wheat")
		gt.Equal(t, req["max_results"], any(float64(3)))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"query": "best time to sow wheat",
			"results": []map[string]any{
				{"title": "Wheat sowing guide", "url": "https://example.com/wheat", "content": "Sow in November.", "score": 0.9},
				{"title": "", "url": "https://example.com/other", "content": "", "score": 0.5},
			},
		})
	}))
	defer srv.Close()

	client := adapter.NewTavily("test-key",
		adapter.WithSearchBaseURL(srv.URL),
		adapter.WithSearchHTTPClient(srv.Client()),
	)
	results, err := client.Search(context.Background(), "best time to sow wheat")
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].Title, "Wheat sowing guide")
	gt.Equal(t, results[0].URL, "https://example.com/wheat")
	gt.Equal(t, results[0].Content, "Sow in November.")
}

func TestTavilySearchProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	client := adapter.NewTavily("bad-key",
		adapter.WithSearchBaseURL(srv.URL),
		adapter.WithSearchHTTPClient(srv.Client()),
	)
	_, err := client.Search(context.Background(), "rice blast")
	gt.True(t, errors.Is(err, adapter.ErrUpstreamSearch))
}

func TestTavilySearchWithoutKey(t *testing.T) {
	_, err := adapter.NewTavily("").Search(context.Background(), "rice blast")
	gt.True(t, errors.Is(err, adapter.ErrUpstreamSearch))
}
