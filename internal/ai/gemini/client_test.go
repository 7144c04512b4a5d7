package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu        sync.Mutex
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}

	f.calls++
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.resp, next.err
}

func textualResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func silenceBackoff(t *testing.T) {
	t.Helper()
	originalWait := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = originalWait })
}

func TestGenerateContentRetriesOnTemporaryError(t *testing.T) {
	silenceBackoff(t)

	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models := &fakeModels{responses: []fakeResponse{
		{err: tempErr},
		{resp: textualResponse("retry ok")},
	}}

	c := &Client{models: models, model: "gemini-2.5-flash", maxRetries: 2, logger: zap.NewNop()}

	output, err := c.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestGenerateContentStopsAfterRetriesExhausted(t *testing.T) {
	silenceBackoff(t)

	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models := &fakeModels{responses: []fakeResponse{
		{err: tempErr},
		{err: tempErr},
	}}

	c := &Client{models: models, model: "gemini-2.5-flash", maxRetries: 2, logger: zap.NewNop()}

	if _, err := c.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestGenerateContentDoesNotRetryPermanentError(t *testing.T) {
	permErr := genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}
	models := &fakeModels{responses: []fakeResponse{
		{err: permErr},
	}}

	c := &Client{models: models, model: "gemini-2.5-flash", maxRetries: 3, logger: zap.NewNop()}

	if _, err := c.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on permanent failure")
	}

	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGenerateContentRejectsEmptyResponse(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{
		{resp: &genai.GenerateContentResponse{}},
	}}

	c := &Client{models: models, model: "gemini-2.5-flash", maxRetries: 3, logger: zap.NewNop()}

	if _, err := c.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on empty response")
	}
}
