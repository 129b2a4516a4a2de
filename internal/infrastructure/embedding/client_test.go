package embedding

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

	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

func newTestClient(url string, dim int) *Client {
	c := NewClient(&config.EmbeddingConfig{
		Provider:  ProviderOpenAI,
		BaseURL:   url,
		APIKey:    "sk-test-123456",
		Model:     "text-embedding-3-small",
		Dimension: dim,
	})
	c.retryDelay = time.Millisecond
	return c
}

func TestBuildEmbeddingURL(t *testing.T) {
	assert.Equal(t, "http://h/v1/embeddings", buildEmbeddingURL("http://h"))
	assert.Equal(t, "http://h/v1/embeddings", buildEmbeddingURL("http://h/v1"))
	assert.Equal(t, "http://h/v1/embeddings", buildEmbeddingURL("http://h/v1/embeddings"))
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-123456", r.Header.Get("Authorization"))

		var req EmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}],"model":"m"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, 3)
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, c.Dim())
	assert.Equal(t, "text-embedding-3-small", c.ModelID())
}

func TestClient_RetryResendsBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		// 每次重试都必须带完整请求体
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Input, 1)

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`))
	}))
	defer server.Close()

	vec, err := newTestClient(server.URL, 2).Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 2).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[1,0,0,0],"index":0}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-t...3456", maskAPIKey("sk-test-123456"))
	assert.Equal(t, "***", maskAPIKey("short"))
}
