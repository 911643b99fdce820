package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAITransport talks to any OpenAI-compatible chat-completions endpoint.
type OpenAITransport struct {
	client *openai.Client
}

// NewOpenAITransport builds a transport for baseURL authenticated with the
// bearer token. A non-zero timeout caps each HTTP round trip.
func NewOpenAITransport(token, baseURL string, timeout time.Duration) *OpenAITransport {
	config := openai.DefaultConfig(token)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAITransport{client: openai.NewClientWithConfig(config)}
}

func (t *OpenAITransport) CreateCompletion(ctx context.Context, req Request) ([]string, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	oaReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    oaMsgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if req.ResponseFormat != "" {
		oaReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(req.ResponseFormat),
		}
	}

	resp, err := t.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}

	candidates := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		candidates = append(candidates, c.Message.Content)
	}
	return candidates, nil
}

// errorFields extracts what the service told us about a failed call.
func errorFields(err error) []zap.Field {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return []zap.Field{
			zap.Int("status", apiErr.HTTPStatusCode),
			zap.String("error_type", apiErr.Type),
			zap.Any("error_code", apiErr.Code),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return []zap.Field{
			zap.Int("status", reqErr.HTTPStatusCode),
			zap.ByteString("body", reqErr.Body),
		}
	}
	return nil
}
