package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionServer(t *testing.T, content string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGPTParser(baseURL string) *GPTParser {
	return NewGPTParser(GPTConfig{
		APIKey:    "test",
		BaseURL:   baseURL,
		Model:     "gpt-test",
		MaxTokens: 50,
	}, NewSimpleParser(fixedNow, time.UTC), zap.NewNop())
}

func TestGPTParser_SimpleFormsSkipAPI(t *testing.T) {
	var calls int32
	srv := completionServer(t, `{}`, &calls)
	p := newGPTParser(srv.URL)

	r, ok := p.Parse(context.Background(), "10m buy milk")
	require.True(t, ok)
	assert.Equal(t, t0.Add(10*time.Minute), r.FireAt)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGPTParser_FallsBackToModel(t *testing.T) {
	var calls int32
	srv := completionServer(t, "```json\n{\"fire_at\": \"2025-12-01 18:00\", \"text\": \"buy milk\"}\n```", &calls)
	p := newGPTParser(srv.URL)

	r, ok := p.Parse(context.Background(), "tonight at six buy milk")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 1, 18, 0, 0, 0, time.UTC), r.FireAt)
	assert.Equal(t, "buy milk", r.Text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGPTParser_ModelFindsNoTime(t *testing.T) {
	var calls int32
	srv := completionServer(t, `{"fire_at": "", "text": "buy milk"}`, &calls)
	p := newGPTParser(srv.URL)

	_, ok := p.Parse(context.Background(), "buy milk someday")
	assert.False(t, ok)
}

func TestGPTParser_APIErrorIsUnparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	p := newGPTParser(srv.URL)

	_, ok := p.Parse(context.Background(), "tonight buy milk")
	assert.False(t, ok)
}

func TestDecodeReply(t *testing.T) {
	r, err := decodeReply(`{"fire_at":"2025-12-24 20:00","text":" dinner "}`, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC), r.FireAt)
	assert.Equal(t, "dinner", r.Text)

	for _, bad := range []string{
		`not json`,
		`{"fire_at":"tomorrow","text":"x"}`,
		`{"fire_at":"2025-12-24 20:00","text":""}`,
	} {
		_, err := decodeReply(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}
