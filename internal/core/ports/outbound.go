package ports

import (
	"context"
	"io"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

// CorpusStore holds the loaded chunk corpus and performs keyword search.
// Content is immutable after load; Search must be safe for concurrent use.
type CorpusStore interface {
	Search(ctx context.Context, query string, limit int) []domain.ScoredChunk
	IsEmpty() bool
	Count() int
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs semantic nearest-neighbor search.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredChunk, error)
	Healthy(ctx context.Context) error
}

// VectorIndexer indexes chunk vectors for semantic retrieval.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
}

// Generator invokes one generation model. The model is passed explicitly
// per call; implementations hold no per-request mutable state and perform
// no tier fallback of their own. Failures are one of the domain kinds
// ErrQuotaExceeded, ErrTransient or ErrEmptyResponse.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	Healthy(ctx context.Context) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// SessionStore persists per-session conversation turns.
type SessionStore interface {
	EnsureSession(ctx context.Context, sessionID string) error
	AppendTurn(ctx context.Context, turn domain.ConversationTurn) error
	ListTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)
}
