package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/extractor/pdf"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/extractor/plaintext"
)

// Registry dispatches text extraction by file extension. It serves both
// the ingestion worker (through object storage) and the corpus loader
// (through ExtractReader).
type Registry struct {
	storage ports.ObjectStorage
}

func NewRegistry(storage ports.ObjectStorage) *Registry {
	return &Registry{storage: storage}
}

func (e *Registry) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	return e.ExtractReader(doc.Filename, reader)
}

func (e *Registry) ExtractReader(filename string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return plaintext.FromReader(r)
	case ".pdf":
		return pdf.FromReader(r)
	default:
		return "", fmt.Errorf("unsupported document format: %s", filename)
	}
}
