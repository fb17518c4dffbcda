package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
)

const (
	defaultContextMaxChars = 800
	defaultDisplayMaxChars = 400
)

// Retriever selects context chunks for a question either through the
// semantic vector index or through the in-memory keyword corpus. When the
// semantic path fails at runtime, the lookup degrades to keyword search
// instead of surfacing the error to the caller.
type Retriever struct {
	mode            domain.RetrievalMode
	corpus          ports.CorpusStore
	embedder        ports.Embedder
	vector          ports.VectorSearcher
	contextMaxChars int
	displayMaxChars int
}

type RetrieverConfig struct {
	Mode            domain.RetrievalMode
	ContextMaxChars int
	DisplayMaxChars int
}

func NewRetriever(corpus ports.CorpusStore, embedder ports.Embedder, vector ports.VectorSearcher, cfg RetrieverConfig) *Retriever {
	if cfg.ContextMaxChars <= 0 {
		cfg.ContextMaxChars = defaultContextMaxChars
	}
	if cfg.DisplayMaxChars <= 0 {
		cfg.DisplayMaxChars = defaultDisplayMaxChars
	}
	mode := cfg.Mode
	if mode == domain.ModeSemantic && (embedder == nil || vector == nil) {
		mode = domain.ModeKeywordOnly
	}
	return &Retriever{
		mode:            mode,
		corpus:          corpus,
		embedder:        embedder,
		vector:          vector,
		contextMaxChars: cfg.ContextMaxChars,
		displayMaxChars: cfg.DisplayMaxChars,
	}
}

func (r *Retriever) Mode() domain.RetrievalMode {
	return r.mode
}

// Retrieve returns up to limit chunks ranked by relevance. It never fails:
// an unreachable vector backend falls through to keyword search, and an
// empty corpus yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) []domain.ScoredChunk {
	if limit <= 0 {
		limit = 3
	}
	if r.mode == domain.ModeSemantic {
		chunks, err := r.semanticSearch(ctx, query, limit)
		if err == nil {
			return chunks
		}
		slog.WarnContext(ctx, "semantic_retrieval_failed",
			slog.String("error", err.Error()),
		)
	}
	return r.corpus.Search(ctx, query, limit)
}

func (r *Retriever) semanticSearch(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	chunks, err := r.vector.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return chunks, nil
}

// FormatContext renders chunks as a grounding block for the generation
// prompt, each annotated with its source document.
func (r *Retriever) FormatContext(chunks []domain.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[source: %s]\n%s", sc.Chunk.SourceName, truncateRunes(sc.Chunk.Content, r.contextMaxChars))
	}
	return b.String()
}

// FormatForDisplay renders chunks as a numbered user-facing excerpt list.
func (r *Retriever) FormatForDisplay(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant document(s):\n", len(chunks))
	for i, sc := range chunks {
		fmt.Fprintf(&b, "\n%d. [%s]\n%s\n", i+1, sc.Chunk.SourceName, truncateRunes(sc.Chunk.Content, r.displayMaxChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " \t\n") + "..."
}
