package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.created = doc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.created == nil {
		return nil, domain.ErrDocumentNotFound
	}
	copyDoc := *f.created
	return &copyDoc, nil
}

func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *ingestRepoFake) SetChunkCount(context.Context, string, int) error { return nil }

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = content
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestUploadStoresRecordsAndPublishes(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "User Guide v2.pdf", "application/pdf", bytes.NewReader([]byte("pdf-bytes")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %q, want %q", doc.Status, domain.StatusUploaded)
	}
	if !strings.HasSuffix(doc.StoragePath, "_User_Guide_v2.pdf") {
		t.Fatalf("storage path = %q, filename not sanitized", doc.StoragePath)
	}
	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatalf("document body not saved under %q", doc.StoragePath)
	}
	if repo.created == nil || repo.created.ID != doc.ID {
		t.Fatalf("metadata not persisted for %q", doc.ID)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v, want [%q]", queue.published, doc.ID)
	}
}

func TestUploadStorageFailureAborts(t *testing.T) {
	repo := &ingestRepoFake{}
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, &storageFake{err: errors.New("disk full")}, queue)

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
	if repo.created != nil {
		t.Fatal("metadata persisted despite storage failure")
	}
	if len(queue.published) != 0 {
		t.Fatal("event published despite storage failure")
	}
}

func TestUploadPublishFailureSurfaces(t *testing.T) {
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, &storageFake{}, &queueFake{err: errors.New("nats down")})

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"User Guide.pdf":   "User_Guide.pdf",
		"../../etc/passwd": "passwd",
		"отчёт.txt":        "_____.txt",
		"":                 "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
