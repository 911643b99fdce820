package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type completionBody struct {
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	TopP           float32 `json:"top_p"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeEndpoint(t *testing.T, handler func(w http.ResponseWriter, body completionBody)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		var body completionBody
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeChoices(w http.ResponseWriter, texts ...string) {
	choices := make([]map[string]any, 0, len(texts))
	for i, text := range texts {
		choices = append(choices, map[string]any{
			"index":         i,
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": "stop",
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"choices": choices,
	})
}

func TestOpenAITransportRequestShape(t *testing.T) {
	var got completionBody
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body completionBody) {
		got = body
		writeChoices(w, "Try a 10-minute walk today.")
	})
	a := New(NewOpenAITransport("test-token", srv.URL, time.Second), Config{Model: "openai/gpt-4"})

	reply := a.Ask(context.Background(), []Turn{{Speaker: SpeakerAssistant, Text: "Welcome!"}}, "I feel lazy")

	assert.Equal(t, "Try a 10-minute walk today.", reply)
	assert.Equal(t, "openai/gpt-4", got.Model)
	assert.Equal(t, float32(1), got.Temperature)
	assert.Equal(t, float32(1), got.TopP)
	assert.Equal(t, "text", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, PersonaDirective, got.Messages[0].Content)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[2].Role)
	assert.Equal(t, "I feel lazy", got.Messages[2].Content)
}

func TestOpenAITransportReturnsCandidatesInOrder(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, _ completionBody) {
		writeChoices(w, "first", "second")
	})
	tr := NewOpenAITransport("test-token", srv.URL, time.Second)

	got, err := tr.CreateCompletion(context.Background(), Request{Model: "m", Messages: BuildContext(nil, "hi")})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestOpenAITransportEmptyChoices(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, _ completionBody) {
		writeChoices(w)
	})
	a := New(NewOpenAITransport("test-token", srv.URL, time.Second), Config{Model: "m"})

	assert.Equal(t, FallbackGeneric, a.Ask(context.Background(), nil, "hi"))
}

func TestOpenAITransportServiceError(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, _ completionBody) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad credentials","type":"invalid_request_error"}}`))
	})
	tr := NewOpenAITransport("test-token", srv.URL, time.Second)

	_, err := tr.CreateCompletion(context.Background(), Request{Model: "m", Messages: BuildContext(nil, "hi")})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, resultOf(nil, err).Outcome)

	core, logs := observer.New(zapcore.DebugLevel)
	a := New(tr, Config{Model: "m", Logger: zap.New(core)})
	assert.Equal(t, FallbackGeneric, a.Ask(context.Background(), nil, "hi"))

	failures := logs.FilterMessage("completion failed").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.EqualValues(t, http.StatusUnauthorized, fields["status"])
	assert.Equal(t, "invalid_request_error", fields["error_type"])
}

func TestErrorFieldsForRequestError(t *testing.T) {
	err := fmt.Errorf("create chat completion: %w", &openai.RequestError{
		HTTPStatusCode: http.StatusBadGateway,
		Body:           []byte("<html>bad gateway</html>"),
	})

	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Error("x", errorFields(err)...)

	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, http.StatusBadGateway, fields["status"])
	assert.Equal(t, "<html>bad gateway</html>", fields["body"])
	assert.Empty(t, errorFields(errors.New("plain")))
}

func TestOpenAITransportClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := fakeEndpoint(t, func(w http.ResponseWriter, _ completionBody) {
		<-release
		writeChoices(w, "too late")
	})
	defer close(release)
	a := New(NewOpenAITransport("test-token", srv.URL, 50*time.Millisecond), Config{Model: "m"})

	assert.Equal(t, FallbackTimeout, a.Ask(context.Background(), nil, "hi"))
}
