package domain

// DocumentChunk is the unit of retrievable content. Chunks are immutable
// once the corpus is loaded; the core never mutates them.
type DocumentChunk struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ScoredChunk pairs a chunk with its relevance score for one query.
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

type RetrievalMode string

const (
	ModeSemantic    RetrievalMode = "semantic"
	ModeKeywordOnly RetrievalMode = "keyword_only"
	ModeUnavailable RetrievalMode = "unavailable"
)
