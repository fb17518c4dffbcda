package corpus

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

const (
	phraseMatchWeight = 50
	wordMatchWeight   = 5
	sourceNameWeight  = 10
	minTokenLength    = 3
)

// Store is an in-memory chunk corpus with keyword scoring. It is populated
// exactly once via Load and immutable afterwards, so concurrent Search
// calls need no locking.
type Store struct {
	loadOnce sync.Once
	loadErr  error
	chunks   []domain.DocumentChunk
}

func NewStore() *Store {
	return &Store{}
}

// Load populates the store from the given source. Repeated calls are
// no-ops returning the first result; concurrent callers block until the
// single load finishes.
func (s *Store) Load(ctx context.Context, source ChunkSource) error {
	s.loadOnce.Do(func() {
		chunks, err := source.Chunks(ctx)
		if err != nil {
			s.loadErr = domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", err)
			return
		}
		s.chunks = chunks
	})
	return s.loadErr
}

// ChunkSource yields the full chunk set for a corpus load.
type ChunkSource interface {
	Chunks(ctx context.Context) ([]domain.DocumentChunk, error)
}

func (s *Store) IsEmpty() bool { return len(s.chunks) == 0 }

func (s *Store) Count() int { return len(s.chunks) }

// Search scores every chunk against the query and returns up to limit
// results ordered by descending score, ties broken by insertion order.
// An empty corpus yields an empty result, never an error.
func (s *Store) Search(_ context.Context, query string, limit int) []domain.ScoredChunk {
	query = strings.TrimSpace(query)
	if query == "" || len(s.chunks) == 0 || limit <= 0 {
		return nil
	}

	phrase := strings.ToLower(query)
	words := tokenizeQuery(query)

	out := make([]domain.ScoredChunk, 0, limit)
	for _, chunk := range s.chunks {
		score := scoreChunk(chunk, phrase, words)
		if score <= 0 {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func scoreChunk(chunk domain.DocumentChunk, phrase string, words []string) float64 {
	content := strings.ToLower(chunk.Content)
	source := strings.ToLower(chunk.SourceName)

	score := 0.0
	if strings.Contains(content, phrase) {
		score += phraseMatchWeight
	}
	for _, word := range words {
		score += float64(strings.Count(content, word) * wordMatchWeight)
		if strings.Contains(source, word) {
			score += sourceNameWeight
		}
	}
	return score
}

func tokenizeQuery(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !isWordRune(r)
		})
		if len([]rune(word)) < minTokenLength {
			continue
		}
		out = append(out, word)
	}
	return out
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
}
