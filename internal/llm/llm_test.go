package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	webpeelerrors "github.com/use-agent/webpeel/errors"
)

func TestExtractSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q", got)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{{Message: struct {
				Content string `json:"content"`
			}{Content: `{"name":"widget"}`}}},
		})
	}))
	defer srv.Close()

	c := NewClient(nil)
	res, err := c.Extract(context.Background(), "some page text", json.RawMessage(`{}`), ExtractParams{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL,
	}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Data) != `{"name":"widget"}` {
		t.Errorf("Data = %s", res.Data)
	}
}

func TestExtractRejectsInvalidJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{{Message: struct {
				Content string `json:"content"`
			}{Content: `not json`}}},
		})
	}))
	defer srv.Close()

	c := NewClient(nil)
	_, err := c.Extract(context.Background(), "text", json.RawMessage(`{}`), ExtractParams{
		APIKey: "k", Model: "m", BaseURL: srv.URL,
	}, "req-1")
	if err == nil {
		t.Fatal("expected an error for non-JSON LLM content")
	}
}

func TestExtractClassifiesAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(chatErrorResponse{Error: struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		}{Message: "invalid api key"}})
	}))
	defer srv.Close()

	c := NewClient(nil)
	_, err := c.Extract(context.Background(), "text", json.RawMessage(`{}`), ExtractParams{
		APIKey: "bad", Model: "m", BaseURL: srv.URL,
	}, "req-1")
	if !webpeelerrors.Is(err, webpeelerrors.KindWebPeel) {
		t.Errorf("expected a KindWebPeel error for a 401, got %v", err)
	}
}

func TestExtractClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(chatErrorResponse{})
	}))
	defer srv.Close()

	c := NewClient(nil)
	_, err := c.Extract(context.Background(), "text", json.RawMessage(`{}`), ExtractParams{
		APIKey: "k", Model: "m", BaseURL: srv.URL,
	}, "req-1")
	if !webpeelerrors.Is(err, webpeelerrors.KindNetwork) {
		t.Errorf("expected a KindNetwork error for a 429, got %v", err)
	}
}
