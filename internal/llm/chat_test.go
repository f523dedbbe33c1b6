package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

func emmaRequest() ChatRequest {
	seed := 40
	return ChatRequest{
		Prompt:      "Who is Emma?",
		Documents:   []models.RetrievedDocument{{Title: "Emma", Snippet: " Emma is a software engineer."}},
		Model:       "command-r",
		Temperature: 0,
		Seed:        &seed,
	}
}

func TestCohereChat_Chat(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Emma is a software engineer.","generation_id":"g1","finish_reason":"COMPLETE"}`))
	}))
	defer srv.Close()

	c := NewCohereChat("test-key", WithBaseURL(srv.URL))
	got, err := c.Chat(context.Background(), emmaRequest())
	if err != nil {
		t.Fatal(err)
	}
	if got != "Emma is a software engineer." {
		t.Errorf("reply = %q", got)
	}

	if raw["message"] != "Who is Emma?" || raw["model"] != "command-r" {
		t.Errorf("request = %v", raw)
	}
	if temp, ok := raw["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("temperature must be sent as 0, got %v (present=%v)", temp, ok)
	}
	if raw["seed"].(float64) != 40 {
		t.Errorf("seed = %v", raw["seed"])
	}
	docs := raw["documents"].([]any)
	doc := docs[0].(map[string]any)
	if len(docs) != 1 || doc["title"] != "Emma" || doc["snippet"] != " Emma is a software engineer." {
		t.Errorf("documents = %v", docs)
	}
}

func TestCohereChat_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"model overloaded"}`))
	}))
	defer srv.Close()

	_, err := NewCohereChat("k", WithBaseURL(srv.URL)).Chat(context.Background(), emmaRequest())
	var pe *models.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Status != http.StatusServiceUnavailable {
		t.Errorf("error = %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1 (no retries)", calls)
	}
}

func TestCohereChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewCohereChat("k", WithBaseURL(url)).Chat(context.Background(), emmaRequest())
	if !errors.Is(err, models.ErrProvider) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestOpenAIChat_Chat(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIChat("test-key", WithBaseURL(srv.URL))
	got, err := c.Chat(context.Background(), emmaRequest())
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("reply = %q", got)
	}

	var req struct {
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		Seed        *int     `json:"seed"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	if req.Model != "command-r" || req.Seed == nil || *req.Seed != 40 {
		t.Errorf("request = %s", body)
	}
	if req.Temperature == nil || *req.Temperature > 1e-6 {
		t.Errorf("temperature should be sent and near zero: %s", body)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Who is Emma?" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "title: Emma") {
		t.Errorf("system message = %q", req.Messages[0].Content)
	}
}

func TestOpenAIChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIChat("k", WithBaseURL(srv.URL)).Chat(context.Background(), emmaRequest())
	var pe *models.ProviderError
	if !errors.As(err, &pe) || pe.Status != http.StatusTooManyRequests {
		t.Errorf("expected 429 ProviderError, got %v", err)
	}
}

func TestStaticChat(t *testing.T) {
	s := NewStaticChat("reply")
	if _, ok := s.LastRequest(); ok {
		t.Error("no request yet")
	}
	got, err := s.Chat(context.Background(), emmaRequest())
	if err != nil || got != "reply" {
		t.Fatalf("got %q, %v", got, err)
	}
	if last, ok := s.LastRequest(); !ok || last.Prompt != "Who is Emma?" {
		t.Errorf("last = %+v", last)
	}

	boom := errors.New("boom")
	s.FailWith(boom)
	if _, err := s.Chat(context.Background(), emmaRequest()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if s.Calls() != 2 {
		t.Errorf("calls = %d", s.Calls())
	}
}

func TestNew(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		m, err := New(config.GenerationConfig{ProviderConfig: config.ProviderConfig{Provider: config.ProviderMock}}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := m.(*StaticChat); !ok {
			t.Errorf("got %T", m)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("KOTAE_TEST_CHAT_KEY", "")
		_, err := New(config.GenerationConfig{ProviderConfig: config.ProviderConfig{
			Provider: config.ProviderCohere, APIKeyEnv: "KOTAE_TEST_CHAT_KEY",
		}}, nil)
		if err == nil || !strings.Contains(err.Error(), "KOTAE_TEST_CHAT_KEY") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("cohere", func(t *testing.T) {
		t.Setenv("KOTAE_TEST_CHAT_KEY", "k")
		m, err := New(config.GenerationConfig{ProviderConfig: config.ProviderConfig{
			Provider: config.ProviderCohere, APIKeyEnv: "KOTAE_TEST_CHAT_KEY",
		}}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := m.(*CohereChat); !ok {
			t.Errorf("got %T", m)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := New(config.GenerationConfig{ProviderConfig: config.ProviderConfig{Provider: "llama"}}, nil); err == nil {
			t.Error("expected error")
		}
	})
}
