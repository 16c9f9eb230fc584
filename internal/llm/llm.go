// Package llm is the BYOK (bring-your-own-key) structured-extraction
// adapter spec.md §4.8's schema stage can optionally delegate to
// instead of the BM25-question-filter heuristic. Adapted almost
// directly from the teacher's llm/openai.go: an OpenAI-compatible chat
// client built on net/http (no SDK), since the caller supplies their
// own API key and base URL per request rather than the module holding
// a configured provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpeelerrors "github.com/use-agent/webpeel/errors"
)

// Client is a minimal OpenAI-compatible chat-completions client.
type Client struct {
	httpClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// ExtractParams carries the caller-supplied credentials and model
// choice; the module never holds or defaults these.
type ExtractParams struct {
	APIKey  string
	Model   string
	BaseURL string // e.g. "https://api.openai.com/v1"
}

// Usage mirrors the provider's token accounting.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ExtractResult is one structured-extraction call's output.
type ExtractResult struct {
	Data  json.RawMessage
	Usage Usage
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Extract sends content plus a JSON schema to the configured provider
// and returns the structured JSON it extracted.
func (c *Client) Extract(ctx context.Context, content string, schema json.RawMessage, params ExtractParams, requestID string) (*ExtractResult, error) {
	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(schema)},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, webpeelerrors.Internal(requestID, "encoding LLM request", err)
	}

	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, webpeelerrors.Internal(requestID, "building LLM request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, webpeelerrors.Network(requestID, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, webpeelerrors.Network(requestID, "reading LLM response failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody, requestID)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, webpeelerrors.Internal(requestID, "parsing LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, webpeelerrors.Internal(requestID, "LLM returned no choices", nil)
	}

	raw := chatResp.Choices[0].Message.Content
	if !json.Valid([]byte(raw)) {
		return nil, webpeelerrors.Internal(requestID, "LLM returned invalid JSON", nil)
	}

	return &ExtractResult{
		Data: json.RawMessage(raw),
		Usage: Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

func buildSystemPrompt(schema json.RawMessage) string {
	return fmt.Sprintf(`You are a structured data extraction assistant. Extract information from the provided content and return it as JSON matching the following schema.

Schema:
%s

Rules:
- Return ONLY valid JSON, no markdown fences or explanation.
- If a field cannot be found in the content, use null.
- Extract exactly the fields specified in the schema.`, string(schema))
}

func classifyLLMError(statusCode int, body []byte, requestID string) *webpeelerrors.Error {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return webpeelerrors.New(webpeelerrors.KindWebPeel, webpeelerrors.CodeInvalidInput, requestID, "LLM authentication failed: "+msg, nil)
	case http.StatusTooManyRequests:
		return webpeelerrors.New(webpeelerrors.KindNetwork, webpeelerrors.CodeNetwork, requestID, "LLM rate limited: "+msg, nil)
	default:
		return webpeelerrors.Network(requestID, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
