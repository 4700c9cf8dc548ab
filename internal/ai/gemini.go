package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/infra/metrics"
)

var (
	_ adapter.RecordingAnalyzer = (*GeminiAdapter)(nil)
	_ adapter.Embedder          = (*GeminiAdapter)(nil)
	_ adapter.Generator         = (*GeminiAdapter)(nil)
)

// GeminiAdapter implements staging, structured extraction, embeddings and
// generation against the Gemini API. Every call takes the credential to
// use; the adapter caches one SDK client per credential.
type GeminiAdapter struct {
	mu      sync.Mutex
	clients map[string]*genai.Client

	model        string
	embedModel   string
	pollAttempts int
	pollInterval time.Duration
	log          *zerolog.Logger
}

func NewGeminiAdapter(model, embedModel string, pollAttempts int, pollInterval time.Duration, logger *zerolog.Logger) *GeminiAdapter {
	l := logger.With().Str("component", "GeminiAdapter").Logger()
	return &GeminiAdapter{
		clients:      make(map[string]*genai.Client),
		model:        model,
		embedModel:   embedModel,
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
		log:          &l,
	}
}

func (g *GeminiAdapter) client(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g.clients[key] = c
	return c, nil
}

func (g *GeminiAdapter) EmbeddingModel() string { return g.embedModel }

// Stage uploads raw recording bytes to the provider's file-staging endpoint
// and returns the locator used for polling and for the extraction call.
func (g *GeminiAdapter) Stage(ctx context.Context, key string, content []byte, mimeType, displayName string) (adapter.StagedFile, error) {
	c, err := g.client(ctx, key)
	if err != nil {
		return adapter.StagedFile{}, err
	}

	start := time.Now()
	f, err := c.Files.Upload(ctx, bytes.NewReader(content), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	metrics.ObserveAICall("stage", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return adapter.StagedFile{}, fmt.Errorf("%w: %w", ErrStageFailed, mapProviderError(err))
	}
	if f == nil || f.URI == "" {
		return adapter.StagedFile{}, fmt.Errorf("%w: upload response carried no file uri", ErrStageFailed)
	}
	mt := f.MIMEType
	if mt == "" {
		mt = mimeType
	}
	return adapter.StagedFile{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: mt,
		State:    string(f.State),
	}, nil
}

// AwaitActive polls the staged file's readiness state with a fixed wait
// between polls. Poll errors are logged and counted against the budget
// rather than aborting, matching provider guidance for transient GETs.
func (g *GeminiAdapter) AwaitActive(ctx context.Context, key string, file adapter.StagedFile) bool {
	c, err := g.client(ctx, key)
	if err != nil {
		return false
	}
	return g.awaitActive(ctx, file.Name, func(ctx context.Context) (string, error) {
		f, err := c.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return "", err
		}
		return string(f.State), nil
	})
}

func (g *GeminiAdapter) awaitActive(ctx context.Context, name string, poll func(context.Context) (string, error)) bool {
	for attempt := 0; attempt < g.pollAttempts; attempt++ {
		state, err := poll(ctx)
		if err != nil {
			g.log.Warn().Err(err).Str("file", name).Int("attempt", attempt+1).Msg("file status poll failed")
		} else {
			switch state {
			case adapter.FileStateActive:
				return true
			case adapter.FileStateFailed, adapter.FileStateExpired:
				g.log.Warn().Str("file", name).Str("state", state).Msg("staged file terminal before active")
				return false
			}
		}

		// No wait after the last poll; the budget is already spent.
		if attempt == g.pollAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(g.pollInterval):
		}
	}
	g.log.Warn().Str("file", name).Int("attempts", g.pollAttempts).Msg("polling budget exhausted")
	return false
}

// analysisArgs mirrors the tool schema populated by the model.
type analysisArgs struct {
	Transcript []struct {
		Speaker   string `json:"speaker"`
		Timestamp string `json:"timestamp"`
		Text      string `json:"text"`
	} `json:"transcript"`
	Summary       string   `json:"summary"`
	KeyHighlights []string `json:"keyHighlights"`
	ActionItems   []struct {
		Task     string `json:"task"`
		Assignee string `json:"assignee"`
		Deadline string `json:"deadline"`
		Status   string `json:"status"`
	} `json:"actionItems"`
}

// Analyze issues the structured-extraction request: the staged file plus
// the diarization instruction, with the tool schema the model must fill.
func (g *GeminiAdapter) Analyze(ctx context.Context, key string, file adapter.StagedFile) (*adapter.MeetingAnalysis, error) {
	c, err := g.client(ctx, key)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{FileData: &genai.FileData{FileURI: file.URI, MIMEType: file.MIMEType}},
			{Text: analysisPrompt},
		},
	}}
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{analysisTool}}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny},
		},
	}

	start := time.Now()
	resp, err := c.Models.GenerateContent(ctx, g.model, contents, cfg)
	metrics.ObserveAICall("analyze", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, mapProviderError(err)
	}
	return decodeAnalysis(resp, g.log)
}

func decodeAnalysis(resp *genai.GenerateContentResponse, log *zerolog.Logger) (*adapter.MeetingAnalysis, error) {
	call := firstFunctionCall(resp)
	if call == nil {
		logRawResponse(log, resp)
		return nil, fmt.Errorf("%w: no function call in candidates", ErrMalformedResponse)
	}

	raw, err := json.Marshal(call.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var args analysisArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		logRawResponse(log, resp)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(args.Transcript) == 0 || args.Summary == "" {
		logRawResponse(log, resp)
		return nil, fmt.Errorf("%w: missing transcript or summary", ErrMalformedResponse)
	}

	out := &adapter.MeetingAnalysis{
		Summary:    args.Summary,
		Highlights: args.KeyHighlights,
	}
	for _, s := range args.Transcript {
		out.Transcript = append(out.Transcript, model.TranscriptSegment{
			Speaker:   s.Speaker,
			Timestamp: s.Timestamp,
			Text:      s.Text,
		})
	}
	for _, a := range args.ActionItems {
		out.ActionItems = append(out.ActionItems, model.ActionItem{
			Task:     a.Task,
			Assignee: a.Assignee,
			Deadline: a.Deadline,
			Status:   a.Status,
		})
	}
	return out, nil
}

func firstFunctionCall(resp *genai.GenerateContentResponse) *genai.FunctionCall {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.FunctionCall != nil {
				return p.FunctionCall
			}
		}
	}
	return nil
}

// logRawResponse dumps the complete provider payload for diagnosis of
// structural anomalies.
func logRawResponse(log *zerolog.Logger, resp *genai.GenerateContentResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("could not marshal provider response")
		return
	}
	log.Error().RawJSON("response", b).Msg("unexpected provider response shape")
}

// Embed returns one unit-length vector per input text. The role is
// threaded through as the provider task type.
func (g *GeminiAdapter) Embed(ctx context.Context, key string, texts []string, role adapter.EmbedRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	c, err := g.client(ctx, key)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	start := time.Now()
	resp, err := c.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: string(role),
	})
	metrics.ObserveAICall("embed", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings", ErrMalformedResponse, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrMalformedResponse, i)
		}
		vectors[i] = normalize(e.Values)
	}
	return vectors, nil
}

// Generate runs a plain text generation call and returns the reply text.
func (g *GeminiAdapter) Generate(ctx context.Context, key string, prompt string) (string, error) {
	c, err := g.client(ctx, key)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	metrics.ObserveAICall("generate", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", mapProviderError(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		logRawResponse(g.log, resp)
		return "", fmt.Errorf("%w: empty generation", ErrMalformedResponse)
	}
	return text, nil
}

// normalize scales v to unit length so dot product equals cosine similarity.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// mapProviderError translates SDK errors into the local taxonomy.
func mapProviderError(err error) error {
	var ae genai.APIError
	if !errors.As(err, &ae) {
		return err
	}
	switch ae.Code {
	case 400:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, ae.Message)
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, ae.Message)
	case 429:
		if ae.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ErrQuotaExhausted, ae.Message)
		}
		return fmt.Errorf("%w: %s", ErrRateLimited, ae.Message)
	case 500, 503:
		return fmt.Errorf("%w: %s", ErrOverloaded, ae.Message)
	default:
		return err
	}
}
