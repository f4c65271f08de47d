package services

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
)

func testOptions() GenerationOptions {
	return GenerationOptions{
		Model:        "gpt-4-turbo-preview",
		Temperature:  0.7,
		MaxTokens:    2000,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func TestOpenAIClientSendsJSONModeRequest(t *testing.T) {
	var got openAIRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion(`{"structureScore": 1}`)))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1/", testOptions(), srv.Client(), nil)
	out, err := c.GenerateJSON(context.Background(), "sys", "usr")
	require.NoError(t, err)

	assert.Equal(t, `{"structureScore": 1}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4-turbo-preview", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, float32(0.7), got.Temperature)
	assert.Equal(t, 2000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openAIMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, openAIMessage{Role: "user", Content: "usr"}, got.Messages[1])
}

func TestOpenAIClientMissingKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewOpenAIClient("", srv.URL, testOptions(), srv.Client(), nil)
	_, err := c.GenerateJSON(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrorConfig))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOpenAIClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(completion(`{"ok":true}`)))
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, testOptions(), srv.Client(), nil)
	out, err := c.GenerateJSON(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestOpenAIClientRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, testOptions(), srv.Client(), nil)
	_, err := c.GenerateJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrorUpstreamUnavailable))
	assert.NotContains(t, err.Error(), "overloaded", "upstream body is not echoed")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestOpenAIClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"invalid api key sk-leak"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, testOptions(), srv.Client(), nil)
	_, err := c.GenerateJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrorUpstream))
	assert.Equal(t, "OpenAI API error: Unauthorized", err.Error())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, testOptions(), srv.Client(), nil)
	_, err := c.GenerateJSON(context.Background(), "s", "u")
	assert.True(t, IsCode(err, ErrorMalformedReply))
}

func TestOpenAIClientHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.RetryBackoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewOpenAIClient("k", srv.URL, opts, srv.Client(), nil)
	start := time.Now()
	_, err := c.GenerateJSON(ctx, "s", "u")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrorUpstreamUnavailable))
	assert.Less(t, time.Since(start), 5*time.Second)
}
