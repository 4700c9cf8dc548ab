package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meeting-scribe/internal/ai"
	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/domain/ports/repository"
	"meeting-scribe/internal/infra/metrics"
	"meeting-scribe/internal/rag"
)

var _ ChatUseCase = (*chatUC)(nil)

// Canned replies for questions that cannot reach the generation step.
const (
	replyStillProcessing = "This meeting is still being processed. Please try again once the transcript is ready."
	replyProcessingFail  = "Processing failed for this meeting, so there is no transcript to answer from."
	replyNoMatches       = "I could not find relevant information in the meeting transcript to answer that."
)

type ChatUseCase interface {
	// Ask answers a question about one meeting using retrieval over its
	// transcript chunks plus the recent chat history.
	Ask(ctx context.Context, userID, meetingID, question string) (string, error)
	History(ctx context.Context, userID, meetingID string, n int) ([]*model.ConversationTurn, error)
}

// ChatOptions are the retrieval knobs, loaded from config.
type ChatOptions struct {
	ChunkSize         int
	ChunkOverlap      int
	MatchThreshold    float64
	TopK              int
	HistoryLimit      int
	PromptTokenBudget int
}

type chatUC struct {
	meetings    repository.MeetingRepository
	transcripts repository.TranscriptRepository
	embeddings  repository.EmbeddingRepository
	convos      repository.ConversationRepository
	embedder    adapter.Embedder
	generator   adapter.Generator
	keyring     *ai.Keyring
	opts        ChatOptions
	log         *zerolog.Logger
}

func NewChatUseCase(
	meetings repository.MeetingRepository,
	transcripts repository.TranscriptRepository,
	embeddings repository.EmbeddingRepository,
	convos repository.ConversationRepository,
	embedder adapter.Embedder,
	generator adapter.Generator,
	keyring *ai.Keyring,
	opts ChatOptions,
	logger *zerolog.Logger,
) *chatUC {
	l := logger.With().Str("component", "ChatUC").Logger()
	return &chatUC{
		meetings:    meetings,
		transcripts: transcripts,
		embeddings:  embeddings,
		convos:      convos,
		embedder:    embedder,
		generator:   generator,
		keyring:     keyring,
		opts:        opts,
		log:         &l,
	}
}

func (c *chatUC) Ask(ctx context.Context, userID, meetingID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrInvalidArgument
	}

	m, err := c.meetings.FindByID(ctx, nil, meetingID)
	if err != nil {
		return "", err
	}
	if m.UserID != userID {
		return "", domain.ErrForbidden
	}

	// History is read before the new question is appended so the prompt
	// does not carry the question twice.
	history, err := c.convos.Recent(ctx, meetingID, c.opts.HistoryLimit)
	if err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("history unavailable, continuing without")
		history = nil
	}
	c.appendTurn(ctx, meetingID, model.SenderUser, question)

	switch m.Status {
	case model.MeetingStatusCompleted:
	case model.MeetingStatusFailed:
		return c.settle(ctx, meetingID, "fallback", replyProcessingFail), nil
	default:
		return c.settle(ctx, meetingID, "fallback", replyStillProcessing), nil
	}

	if err := c.ensureEmbeddings(ctx, m); err != nil {
		if errors.Is(err, domain.ErrNoTranscript) {
			return c.settle(ctx, meetingID, "fallback", replyProcessingFail), nil
		}
		metrics.IncChatQuestion("error")
		return "", err
	}

	contexts, err := c.retrieve(ctx, meetingID, question)
	if err != nil {
		metrics.IncChatQuestion("error")
		return "", err
	}
	if len(contexts) == 0 {
		return c.settle(ctx, meetingID, "no_match", replyNoMatches), nil
	}

	prompt := rag.BuildPrompt(history, contexts, question, c.opts.PromptTokenBudget)

	var answer string
	err = c.keyring.Do(ctx, func(ctx context.Context, key string) error {
		var genErr error
		answer, genErr = c.generator.Generate(ctx, key, prompt)
		return genErr
	})
	if err != nil {
		metrics.IncChatQuestion("error")
		return "", fmt.Errorf("generate answer: %w", err)
	}

	return c.settle(ctx, meetingID, "answered", answer), nil
}

func (c *chatUC) History(ctx context.Context, userID, meetingID string, n int) ([]*model.ConversationTurn, error) {
	m, err := c.meetings.FindByID(ctx, nil, meetingID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if n <= 0 {
		n = c.opts.HistoryLimit
	}
	return c.convos.Recent(ctx, meetingID, n)
}

// ensureEmbeddings builds the chunk index on first use. EmbeddingReady
// gates the work so replays and later questions skip it.
func (c *chatUC) ensureEmbeddings(ctx context.Context, m *model.Meeting) error {
	if m.EmbeddingReady {
		return nil
	}

	rec, err := c.transcripts.FindByMeeting(ctx, m.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoTranscript
		}
		return err
	}

	text := rag.FormatTranscript(rec.Transcript)
	pieces, err := rag.Chunk(text, c.opts.ChunkSize, c.opts.ChunkOverlap)
	if err != nil {
		return err
	}
	if len(pieces) == 0 {
		return domain.ErrNoTranscript
	}

	vectors, err := c.embedBatches(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed transcript: %w", err)
	}

	chunks := make([]*model.EmbeddingChunk, len(pieces))
	for i := range pieces {
		chunks[i] = &model.EmbeddingChunk{
			MeetingID: m.ID,
			Content:   pieces[i],
			Embedding: vectors[i],
			Model:     c.embedder.EmbeddingModel(),
			CreatedAt: time.Now(),
		}
	}
	if err := c.embeddings.BulkInsert(ctx, chunks); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	if err := c.meetings.SetEmbeddingReady(ctx, m.ID); err != nil {
		return err
	}
	m.EmbeddingReady = true
	metrics.AddChunksEmbedded(len(chunks))
	c.log.Info().Str("meeting_id", m.ID).Int("chunks", len(chunks)).Msg("transcript embedded")
	return nil
}

// embedBatches embeds document chunks in provider-sized batches, each
// batch under credential rotation.
func (c *chatUC) embedBatches(ctx context.Context, pieces []string) ([][]float32, error) {
	const batchSize = 100

	out := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += batchSize {
		end := start + batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]

		var vectors [][]float32
		err := c.keyring.Do(ctx, func(ctx context.Context, key string) error {
			var embErr error
			vectors, embErr = c.embedder.Embed(ctx, key, batch, adapter.EmbedRoleDocument)
			return embErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// retrieve embeds the question and returns the contents of the chunks
// that rank above the match threshold, best first.
func (c *chatUC) retrieve(ctx context.Context, meetingID, question string) ([]string, error) {
	var queryVec []float32
	err := c.keyring.Do(ctx, func(ctx context.Context, key string) error {
		vecs, embErr := c.embedder.Embed(ctx, key, []string{question}, adapter.EmbedRoleQuery)
		if embErr != nil {
			return embErr
		}
		queryVec = vecs[0]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	stored, err := c.embeddings.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	candidates := make([]rag.Candidate, len(stored))
	contentByID := make(map[int64]string, len(stored))
	for i, ch := range stored {
		candidates[i] = rag.Candidate{ID: ch.ID, Vector: ch.Embedding}
		contentByID[ch.ID] = ch.Content
	}

	matches := rag.Rank(queryVec, candidates, c.opts.MatchThreshold, c.opts.TopK)
	contexts := make([]string, 0, len(matches))
	for _, match := range matches {
		contexts = append(contexts, contentByID[match.ID])
	}
	return contexts, nil
}

// settle records the assistant turn and the outcome metric, returning the
// reply unchanged.
func (c *chatUC) settle(ctx context.Context, meetingID, outcome, reply string) string {
	c.appendTurn(ctx, meetingID, model.SenderAssistant, reply)
	metrics.IncChatQuestion(outcome)
	return reply
}

// appendTurn is best-effort: losing one history row must not fail the
// question.
func (c *chatUC) appendTurn(ctx context.Context, meetingID string, sender model.Sender, message string) {
	turn := &model.ConversationTurn{MeetingID: meetingID, Sender: sender, Message: message}
	if err := c.convos.Append(ctx, turn); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("chat turn not persisted")
	}
}
