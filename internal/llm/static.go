package llm

import (
	"context"
	"sync"
)

// DefaultStaticReply is what the mock provider answers with.
const DefaultStaticReply = "```json\n{\"question\": \"\", \"language_question\": \"en\", \"answer\": \"This is a canned answer from the mock chat model.\", \"emojis\": \"🤖\"}\n```"

// StaticChat returns a fixed reply and records every request. It serves the
// mock provider and tests.
type StaticChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []ChatRequest
}

// NewStaticChat returns a chat model that always answers reply.
func NewStaticChat(reply string) *StaticChat {
	return &StaticChat{reply: reply}
}

// FailWith makes every later call return err.
func (s *StaticChat) FailWith(err error) *StaticChat {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *StaticChat) Chat(ctx context.Context, req ChatRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

// Calls returns how many times Chat was invoked.
func (s *StaticChat) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request, or false when there was none.
func (s *StaticChat) LastRequest() (ChatRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ChatRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}
