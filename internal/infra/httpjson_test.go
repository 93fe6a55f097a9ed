package infra_test

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

	"interview-bot/internal/infra"
)

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("X-Api-Key", "secret")

	var out struct {
		Echo string `json:"echo"`
	}
	err := infra.PostJSON(context.Background(), server.Client(), infra.DefaultRetryConfig(),
		server.URL, header, map[string]string{"msg": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Echo)
}

func TestPostJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := infra.RetryConfigWithAttempts(3)
	cfg.InitialDelay = time.Millisecond

	var out map[string]any
	require.NoError(t, infra.PostJSON(context.Background(), server.Client(), cfg, server.URL, nil, struct{}{}, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSON_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := infra.RetryConfigWithAttempts(3)
	cfg.InitialDelay = time.Millisecond

	var out map[string]any
	err := infra.PostJSON(context.Background(), server.Client(), cfg, server.URL, nil, struct{}{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}
