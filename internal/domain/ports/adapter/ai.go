package adapter

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

// EmbedRole distinguishes query-time from document-indexing embedding
// requests; the provider weights the two differently.
type EmbedRole string

const (
	EmbedRoleQuery    EmbedRole = "RETRIEVAL_QUERY"
	EmbedRoleDocument EmbedRole = "RETRIEVAL_DOCUMENT"
)

// Readiness states reported by the provider for a staged file.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
	FileStateExpired    = "EXPIRED"
)

// StagedFile is the provider-side handle for an uploaded recording. It is
// ephemeral: owned by the in-flight job attempt and never persisted.
type StagedFile struct {
	Name     string
	URI      string
	MIMEType string
	State    string
}

// MeetingAnalysis is the decoded structured-extraction result. Adapters
// decode the provider payload into this at the boundary so downstream code
// never inspects raw maps.
type MeetingAnalysis struct {
	Transcript  []model.TranscriptSegment
	Summary     string
	Highlights  []string
	ActionItems []model.ActionItem
}

// RecordingAnalyzer is the port for the provider's file staging and
// structured extraction endpoints. Calls take the credential to use;
// rotation across the pool is the caller's concern.
type RecordingAnalyzer interface {
	// Stage uploads raw recording bytes and returns the provider handle.
	Stage(ctx context.Context, key string, content []byte, mimeType, displayName string) (StagedFile, error)

	// AwaitActive polls the staged file until it is ACTIVE. Returns false
	// (not an error) on FAILED/EXPIRED or when the polling budget runs out.
	AwaitActive(ctx context.Context, key string, file StagedFile) bool

	// Analyze runs the structured extraction call against a staged file.
	Analyze(ctx context.Context, key string, file StagedFile) (*MeetingAnalysis, error)
}

// Embedder turns texts into fixed-length unit vectors.
type Embedder interface {
	Embed(ctx context.Context, key string, texts []string, role EmbedRole) ([][]float32, error)
	EmbeddingModel() string
}

// Generator is the plain-text generation port used by the RAG answer step.
type Generator interface {
	Generate(ctx context.Context, key string, prompt string) (string, error)
}
