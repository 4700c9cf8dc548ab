package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/infra/metrics"
)

var (
	_ adapter.Embedder  = (*OpenAIAdapter)(nil)
	_ adapter.Generator = (*OpenAIAdapter)(nil)
)

// OpenAIAdapter is the fallback chat/embedding provider. It does not
// implement RecordingAnalyzer: recording analysis requires the staging
// file API, which only the Gemini path provides.
type OpenAIAdapter struct {
	mu      sync.Mutex
	clients map[string]openai.Client

	model      string
	embedModel string
}

func NewOpenAIAdapter(model, embedModel string) *OpenAIAdapter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenAIAdapter{
		clients:    make(map[string]openai.Client),
		model:      model,
		embedModel: embedModel,
	}
}

func (o *OpenAIAdapter) EmbeddingModel() string { return o.embedModel }

func (o *OpenAIAdapter) client(key string) openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.clients[key]; ok {
		return c
	}
	c := openai.NewClient(option.WithAPIKey(key))
	o.clients[key] = c
	return c
}

func (o *OpenAIAdapter) Generate(ctx context.Context, key string, prompt string) (string, error) {
	c := o.client(key)

	start := time.Now()
	resp, err := c.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	metrics.ObserveAICall("generate", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed ignores the role flag: the OpenAI embedding endpoint has no
// query/document task distinction.
func (o *OpenAIAdapter) Embed(ctx context.Context, key string, texts []string, _ adapter.EmbedRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	c := o.client(key)

	start := time.Now()
	resp, err := c.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	metrics.ObserveAICall("embed", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings", ErrMalformedResponse, len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		vectors[i] = normalize(v)
	}
	return vectors, nil
}

func mapOpenAIError(err error) error {
	var ae *openai.Error
	if !errors.As(err, &ae) {
		return err
	}
	switch ae.StatusCode {
	case 400, 404, 422:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, ae.Message)
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, ae.Message)
	case 429:
		return fmt.Errorf("%w: %s", ErrQuotaExhausted, ae.Message)
	case 500, 502, 503:
		return fmt.Errorf("%w: %s", ErrOverloaded, ae.Message)
	default:
		return err
	}
}
