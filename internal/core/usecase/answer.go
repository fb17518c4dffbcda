package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
)

const (
	msgEmptyQuestion  = "Please enter a question about the support documentation."
	msgFallbackNotice = "AI generation is temporarily unavailable, showing the most relevant document excerpts instead."
	msgGenericFailure = "Something went wrong while answering your question. Please try again."

	defaultQuotaBackoff = 2 * time.Second
)

const groundingInstructions = "You are a support assistant. Answer the question using only the " +
	"documentation excerpts below. If the excerpts do not contain the answer, say so explicitly " +
	"instead of guessing. Keep the answer concise and practical."

// AnswerUseCase orchestrates retrieval and tiered generation for a single
// question. Answer never returns an error: every failure path resolves to a
// user-facing result, degrading from generated text to document excerpts.
type AnswerUseCase struct {
	retriever    *Retriever
	generator    ports.Generator
	tiers        domain.ModelTier
	topK         int
	maxAttempts  int
	quotaBackoff time.Duration
}

type AnswerConfig struct {
	Tiers        domain.ModelTier
	TopK         int
	MaxAttempts  int
	QuotaBackoff time.Duration
}

func NewAnswerUseCase(retriever *Retriever, generator ports.Generator, cfg AnswerConfig) *AnswerUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.QuotaBackoff <= 0 {
		cfg.QuotaBackoff = defaultQuotaBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = cfg.Tiers.Len()
	}
	if cfg.MaxAttempts < 2 {
		cfg.MaxAttempts = 2
	}
	return &AnswerUseCase{
		retriever:    retriever,
		generator:    generator,
		tiers:        cfg.Tiers,
		topK:         cfg.TopK,
		maxAttempts:  cfg.MaxAttempts,
		quotaBackoff: cfg.QuotaBackoff,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string) (result domain.AnswerResult) {
	var retrieved []domain.ScoredChunk
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "answer_panic_recovered", slog.Any("panic", r))
			if len(retrieved) > 0 {
				result = uc.documentFallback(retrieved, 0)
				return
			}
			result = domain.AnswerResult{
				Text:    msgGenericFailure,
				Outcome: domain.OutcomeError,
			}
		}
	}()

	query := strings.TrimSpace(question)
	if query == "" {
		return domain.AnswerResult{
			Text:    msgEmptyQuestion,
			Outcome: domain.OutcomeValidation,
		}
	}

	chunks := uc.retriever.Retrieve(ctx, query, uc.topK)
	if len(chunks) == 0 {
		return domain.AnswerResult{
			Text:    fmt.Sprintf("No relevant documents found for %q. Try rephrasing the question or asking about another topic.", query),
			Outcome: domain.OutcomeNoDocuments,
		}
	}
	retrieved = chunks

	// An empty tier list is a configuration fault, not a user error; the
	// documents still answer as well as they can.
	if uc.tiers.Len() == 0 {
		slog.WarnContext(ctx, "no_generation_models_configured")
		return uc.documentFallback(chunks, 0)
	}

	prompt := uc.buildPrompt(query, chunks)

	tierIdx := 0
	attempts := 0
	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		attempts = attempt
		model := uc.tiers.At(tierIdx)

		text, err := uc.generator.Generate(ctx, model.ID, prompt)
		if err == nil {
			return domain.AnswerResult{
				Text:     strings.TrimSpace(text),
				Outcome:  domain.OutcomeGenerated,
				Model:    model.ID,
				Attempts: attempt,
				Sources:  chunks,
			}
		}

		switch {
		case domain.IsKind(err, domain.ErrQuotaExceeded):
			slog.WarnContext(ctx, "generation_quota_exhausted",
				slog.String("model", model.ID),
				slog.Int("attempt", attempt),
			)
			if tierIdx >= uc.tiers.Len()-1 {
				return uc.documentFallback(chunks, attempts)
			}
			if !waitBackoff(ctx, uc.quotaBackoff) {
				return uc.documentFallback(chunks, attempts)
			}
			tierIdx++

		case domain.IsKind(err, domain.ErrTransient), domain.IsKind(err, domain.ErrEmptyResponse):
			slog.WarnContext(ctx, "generation_attempt_failed",
				slog.String("model", model.ID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			if tierIdx < uc.tiers.Len()-1 {
				tierIdx++
			}

		default:
			slog.ErrorContext(ctx, "generation_failed",
				slog.String("model", model.ID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return uc.documentFallback(chunks, attempts)
		}
	}

	return uc.documentFallback(chunks, attempts)
}

func (uc *AnswerUseCase) buildPrompt(question string, chunks []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(groundingInstructions)
	b.WriteString("\n\nDocumentation excerpts:\n")
	b.WriteString(uc.retriever.FormatContext(chunks))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func (uc *AnswerUseCase) documentFallback(chunks []domain.ScoredChunk, attempts int) domain.AnswerResult {
	return domain.AnswerResult{
		Text:     msgFallbackNotice + "\n\n" + uc.retriever.FormatForDisplay(chunks),
		Outcome:  domain.OutcomeDocumentFallback,
		Attempts: attempts,
		Sources:  chunks,
	}
}

// waitBackoff sleeps for d unless the context ends first. It reports
// whether the full backoff elapsed.
func waitBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
