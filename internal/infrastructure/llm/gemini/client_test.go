package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

func generationBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustJSON(text) + `}]}}]}`
}

func mustJSON(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, "test-key", "embed-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, server
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("http://localhost", "  ", "embed-model")
	if !domain.IsKind(err, domain.ErrCredentialMissing) {
		t.Fatalf("err = %v, want credential-missing kind", err)
	}
}

func TestGenerateSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generationBody("  Generated answer.\n")))
	})

	text, err := client.Generate(context.Background(), "model-fast", "prompt text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Generated answer." {
		t.Fatalf("text = %q", text)
	}
	if gotPath != "/v1beta/models/model-fast:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotBody.GenerationConfig == nil || gotBody.GenerationConfig.Temperature != 0.1 || gotBody.GenerationConfig.MaxOutputTokens != 1000 {
		t.Fatalf("generation config = %+v", gotBody.GenerationConfig)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "prompt text" {
		t.Fatalf("request contents = %+v", gotBody.Contents)
	}
}

func TestGenerate429IsQuotaExceeded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded for requests","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota-exceeded kind", err)
	}
}

func TestGenerateResourceExhaustedStatusIsQuotaExceeded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota-exceeded kind", err)
	}
}

func TestGenerateQuotaMessageMarkerIsQuotaExceeded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Request rate limit reached for this project","status":"FAILED_PRECONDITION"}}`))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota-exceeded kind", err)
	}
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrTransient) {
		t.Fatalf("err = %v, want transient kind", err)
	}
	if domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("server error misclassified as quota: %v", err)
	}
}

func TestGenerateEmptyCandidatesIsEmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrEmptyResponse) {
		t.Fatalf("err = %v, want empty-response kind", err)
	}
}

func TestGenerateBlankCandidateTextIsEmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generationBody("   \n  ")))
	})

	_, err := client.Generate(context.Background(), "model-fast", "prompt")
	if !domain.IsKind(err, domain.ErrEmptyResponse) {
		t.Fatalf("err = %v, want empty-response kind", err)
	}
}

func TestGenerateContextCancellationPassesThrough(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(generationBody("too late")))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "model-fast", "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsKind(err, domain.ErrTransient) || domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("cancellation wrapped as backend failure: %v", err)
	}
}

func TestHealthyProbesModelsEndpoint(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[]}`))
	})

	if err := client.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if gotPath != "/v1beta/models?pageSize=1" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestHealthyReportsAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	})

	err := client.Healthy(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("error does not carry backend message: %v", err)
	}
}

func TestEmbedQueryReturnsVector(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "embed-model:embedContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	})

	vector, err := client.EmbedQuery(context.Background(), "question text")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("vector length = %d, want 3", len(vector))
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "embed-model:batchEmbedContents") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1]},{"values":[2]}]}`))
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][0] != 2 {
		t.Fatalf("vectors = %v", vectors)
	}
}
