package ports

import (
	"context"
	"io"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

// AnswerService is the inbound contract for the question-answering
// pipeline. It never fails: every path resolves to a result whose Text
// is safe to show to the user.
type AnswerService interface {
	Answer(ctx context.Context, question string) domain.AnswerResult
}

// StatusReporter exposes pipeline readiness for health reporting.
type StatusReporter interface {
	Status(ctx context.Context) domain.PipelineStatus
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
