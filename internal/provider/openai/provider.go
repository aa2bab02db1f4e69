package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"obfin-advisor/internal/config"
	"obfin-advisor/internal/models"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "obfin-advisor/0.1"
	maxErrorBody    = 64 * 1024
)

// Provider implements provider.Provider for OpenAI-compatible chat completion APIs.
type Provider struct {
	name    string
	apiKey  string
	headers map[string]string
	client  *http.Client
	chatURL string
}

// New creates a new OpenAI provider.
func New(name string, cfg config.UpstreamConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key must not be empty")
	}

	return &Provider{
		name:    name,
		apiKey:  cfg.APIKey,
		headers: cfg.Headers,
		client:  client,
		chatURL: baseURL + "/chat/completions",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Complete posts the request and classifies the outcome. A successful result
// carries the raw JSON payload; extraction is left to the caller.
func (p *Provider) Complete(ctx context.Context, req models.UpstreamRequest) models.UpstreamResult {
	httpReq, err := p.newRequest(ctx, http.MethodPost, p.chatURL, buildChatPayload(req))
	if err != nil {
		return models.UpstreamResult{Kind: models.ResultTransportFailure, Err: err}
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return models.UpstreamResult{Kind: models.ResultTransportFailure, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return models.UpstreamResult{
			Kind:       models.ResultStatusFailure,
			StatusCode: httpResp.StatusCode,
			Body:       readErrorBody(httpResp.Body),
		}
	}

	// The whole body must be one JSON document; trailing bytes are a parse failure.
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return models.UpstreamResult{Kind: models.ResultParseFailure, Err: fmt.Errorf("read body: %w", err)}
	}

	var payload json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.UpstreamResult{Kind: models.ResultParseFailure, Err: err}
	}

	return models.UpstreamResult{Kind: models.ResultSuccess, Payload: payload}
}

func (p *Provider) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildChatPayload(req models.UpstreamRequest) chatPayload {
	messages := make([]openAIMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return chatPayload{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// readErrorBody returns the body as text, or "" when it cannot be read.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return string(body)
}
