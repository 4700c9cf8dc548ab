package ai

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"google.golang.org/genai"

	"meeting-scribe/internal/config"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/infra/logging"
)

func analysisResponse(args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{Name: "store_meeting_analysis", Args: args},
				}},
			},
		}},
	}
}

func TestDecodeAnalysis(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	resp := analysisResponse(map[string]any{
		"transcript": []any{
			map[string]any{"speaker": "Alice", "timestamp": "00:01", "text": "kickoff"},
		},
		"summary":       "Kickoff meeting.",
		"keyHighlights": []any{"kicked off"},
		"actionItems": []any{
			map[string]any{"task": "draft plan", "assignee": "Alice", "deadline": "monday", "status": "open"},
		},
	})

	got, err := decodeAnalysis(resp, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "Kickoff meeting." {
		t.Fatalf("summary = %q", got.Summary)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Speaker != "Alice" {
		t.Fatalf("transcript = %+v", got.Transcript)
	}
	if len(got.ActionItems) != 1 || got.ActionItems[0].Task != "draft plan" {
		t.Fatalf("action items = %+v", got.ActionItems)
	}
}

func TestDecodeAnalysis_MissingToolCall(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot do that"}}},
		}},
	}

	if _, err := decodeAnalysis(resp, log); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestDecodeAnalysis_MissingRequiredFields(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	resp := analysisResponse(map[string]any{"summary": "no transcript here"})

	if _, err := decodeAnalysis(resp, log); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func pollAdapter(attempts int, interval time.Duration) *GeminiAdapter {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	return NewGeminiAdapter("gemini-2.5-flash", "text-embedding-004", attempts, interval, log)
}

func TestAwaitActive_ActiveOnLaterPoll(t *testing.T) {
	g := pollAdapter(5, time.Millisecond)
	polls := 0
	ok := g.awaitActive(context.Background(), "files/abc", func(context.Context) (string, error) {
		polls++
		if polls < 2 {
			return adapter.FileStateProcessing, nil
		}
		return adapter.FileStateActive, nil
	})
	if !ok || polls != 2 {
		t.Fatalf("ok=%v polls=%d, want active after 2 polls", ok, polls)
	}
}

func TestAwaitActive_TerminalStateStopsImmediately(t *testing.T) {
	// With an hour-long interval, any wait would hang the test.
	g := pollAdapter(5, time.Hour)
	polls := 0
	done := make(chan bool, 1)
	go func() {
		done <- g.awaitActive(context.Background(), "files/abc", func(context.Context) (string, error) {
			polls++
			return adapter.FileStateFailed, nil
		})
	}()
	select {
	case ok := <-done:
		if ok || polls != 1 {
			t.Fatalf("ok=%v polls=%d, want immediate failure", ok, polls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("terminal state must not wait out the poll interval")
	}
}

func TestAwaitActive_NoWaitAfterFinalPoll(t *testing.T) {
	g := pollAdapter(2, 150*time.Millisecond)
	polls := 0
	start := time.Now()
	ok := g.awaitActive(context.Background(), "files/abc", func(context.Context) (string, error) {
		polls++
		return adapter.FileStateProcessing, nil
	})
	elapsed := time.Since(start)

	if ok || polls != 2 {
		t.Fatalf("ok=%v polls=%d, want budget exhaustion after 2 polls", ok, polls)
	}
	if elapsed < 150*time.Millisecond {
		t.Fatalf("elapsed %v, want one full interval between polls", elapsed)
	}
	// Two intervals would mean the loop slept after the final attempt.
	if elapsed >= 280*time.Millisecond {
		t.Fatalf("elapsed %v, final attempt must not wait", elapsed)
	}
}

func TestAwaitActive_PollErrorsCountAgainstBudget(t *testing.T) {
	g := pollAdapter(3, time.Millisecond)
	polls := 0
	ok := g.awaitActive(context.Background(), "files/abc", func(context.Context) (string, error) {
		polls++
		return "", errors.New("transient 502")
	})
	if ok || polls != 3 {
		t.Fatalf("ok=%v polls=%d, want all attempts consumed", ok, polls)
	}
}

func TestNormalize(t *testing.T) {
	v := normalize([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("not unit length: %f", sum)
	}

	zero := normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector must pass through, got %v", zero)
	}
}

func TestMapProviderError(t *testing.T) {
	cases := []struct {
		code   int
		status string
		want   error
	}{
		{400, "", ErrInvalidRequest},
		{401, "", ErrPermissionDenied},
		{403, "", ErrPermissionDenied},
		{429, "RESOURCE_EXHAUSTED", ErrQuotaExhausted},
		{429, "", ErrRateLimited},
		{500, "", ErrOverloaded},
		{503, "", ErrOverloaded},
	}
	for _, c := range cases {
		err := mapProviderError(genai.APIError{Code: c.code, Status: c.status, Message: "x"})
		if !errors.Is(err, c.want) {
			t.Errorf("code %d status %q: got %v, want %v", c.code, c.status, err, c.want)
		}
	}

	plain := errors.New("socket closed")
	if got := mapProviderError(plain); got != plain {
		t.Errorf("unclassified error must pass through, got %v", got)
	}
}
