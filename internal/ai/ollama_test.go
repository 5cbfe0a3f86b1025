package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOptions = GenerateOptions{NumPredict: 2048, Temperature: 0.7, TopP: 0.9, TopK: 40}

func TestOllamaClient_Generate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama2","response":"  The paper argues X.\n","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL + "/", Model: "llama2"})
	answer, err := client.Generate(context.Background(), "PROMPT", testOptions)
	require.NoError(t, err)

	assert.Equal(t, "  The paper argues X.\n", answer, "answer is returned verbatim")
	assert.Equal(t, "llama2", got["model"])
	assert.Equal(t, "PROMPT", got["prompt"])
	assert.Equal(t, false, got["stream"])
	options, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2048), options["num_predict"])
	assert.Equal(t, 0.7, options["temperature"])
	assert.Equal(t, 0.9, options["top_p"])
	assert.Equal(t, float64(40), options["top_k"])
	assert.Equal(t, "llama2", client.ModelName())
}

func TestOllamaClient_Generate_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama2' not found"}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama2"})
	_, err := client.Generate(context.Background(), "p", testOptions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaClient_Generate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   ","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama2"})
	_, err := client.Generate(context.Background(), "p", testOptions)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaClient_Generate_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama2"})
	_, err := client.Generate(context.Background(), "p", testOptions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse generate json failed")
}

func TestOllamaClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama2", Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.Generate(context.Background(), "p", testOptions)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestOllamaClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama2"})
	assert.NoError(t, client.Ping(context.Background()))

	server.Close()
	assert.Error(t, client.Ping(context.Background()))
}
