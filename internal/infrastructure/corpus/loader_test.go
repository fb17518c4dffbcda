package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/chunking"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/extractor"
)

func TestDirectorySourceLoadsFilesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-billing.md", "billing content")
	writeFile(t, dir, "a-faq.txt", "faq content")

	source := NewDirectorySource(dir, chunking.NewSplitter(900, 150), extractor.NewRegistry(nil))
	chunks, err := source.Chunks(context.Background())
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].SourceName != "a-faq.txt" || chunks[1].SourceName != "b-billing.md" {
		t.Fatalf("order = %q, %q", chunks[0].SourceName, chunks[1].SourceName)
	}
	if chunks[0].ID != "a-faq.txt#0" {
		t.Fatalf("chunk id = %q", chunks[0].ID)
	}
}

func TestDirectorySourceSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "supported")
	writeFile(t, dir, "image.png", "\x89PNG")

	source := NewDirectorySource(dir, chunking.NewSplitter(900, 150), extractor.NewRegistry(nil))
	chunks, err := source.Chunks(context.Background())
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].SourceName != "notes.txt" {
		t.Fatalf("chunks = %+v", chunks)
	}
}

func TestDirectorySourceMissingDirIsEmptyCorpus(t *testing.T) {
	source := NewDirectorySource(filepath.Join(t.TempDir(), "does-not-exist"), chunking.NewSplitter(900, 150), extractor.NewRegistry(nil))
	chunks, err := source.Chunks(context.Background())
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks = %d, want 0", len(chunks))
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
