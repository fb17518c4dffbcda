package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
)

// ReaderExtractor converts one source file into plain text.
type ReaderExtractor interface {
	ExtractReader(filename string, r io.Reader) (string, error)
}

// DirectorySource builds the chunk corpus from support documents in a
// local directory. A missing or empty directory is not an error; the
// store degrades to empty-corpus behavior.
type DirectorySource struct {
	dir       string
	chunker   ports.Chunker
	extractor ReaderExtractor
}

func NewDirectorySource(dir string, chunker ports.Chunker, extractor ReaderExtractor) *DirectorySource {
	return &DirectorySource{
		dir:       dir,
		chunker:   chunker,
		extractor: extractor,
	}
}

func (s *DirectorySource) Chunks(ctx context.Context) ([]domain.DocumentChunk, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("corpus_dir_missing", "dir", s.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	// Deterministic insertion order; keyword-search tie-breaks depend on it.
	sort.Strings(names)

	out := make([]domain.DocumentChunk, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := s.loadFile(name)
		if err != nil {
			slog.Warn("corpus_file_skipped", "file", name, "error", err)
			continue
		}
		out = append(out, chunks...)
	}

	slog.Info("corpus_loaded", "dir", s.dir, "files", len(names), "chunks", len(out))
	return out, nil
}

func (s *DirectorySource) loadFile(name string) ([]domain.DocumentChunk, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	text, err := s.extractor.ExtractReader(name, f)
	if err != nil {
		return nil, err
	}

	pieces := s.chunker.Split(text)
	chunks := make([]domain.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.DocumentChunk{
			ID:         fmt.Sprintf("%s#%d", name, i),
			SourceName: name,
			Content:    piece,
		})
	}
	return chunks, nil
}
