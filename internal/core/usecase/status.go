package usecase

import (
	"context"
	"time"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
)

const defaultProbeTimeout = 3 * time.Second

// StatusUseCase reports pipeline readiness for diagnostics. Probes against
// remote backends run under a bounded timeout so a hung dependency cannot
// stall the status endpoint.
type StatusUseCase struct {
	apiKeyPresent bool
	corpus        ports.CorpusStore
	generator     ports.Generator
	vector        ports.VectorSearcher
	configured    domain.RetrievalMode
	probeTimeout  time.Duration
}

type StatusConfig struct {
	APIKeyPresent bool
	Mode          domain.RetrievalMode
	ProbeTimeout  time.Duration
}

func NewStatusUseCase(corpus ports.CorpusStore, generator ports.Generator, vector ports.VectorSearcher, cfg StatusConfig) *StatusUseCase {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	return &StatusUseCase{
		apiKeyPresent: cfg.APIKeyPresent,
		corpus:        corpus,
		generator:     generator,
		vector:        vector,
		configured:    cfg.Mode,
		probeTimeout:  cfg.ProbeTimeout,
	}
}

func (uc *StatusUseCase) Status(ctx context.Context) domain.PipelineStatus {
	probeCtx, cancel := context.WithTimeout(ctx, uc.probeTimeout)
	defer cancel()

	status := domain.PipelineStatus{
		APIKeyPresent: uc.apiKeyPresent,
		DocumentCount: uc.corpus.Count(),
	}
	status.CorpusReady = status.DocumentCount > 0

	if uc.generator != nil {
		status.GenerationReady = uc.generator.Healthy(probeCtx) == nil
	}

	status.Mode = uc.resolveMode(probeCtx, status.CorpusReady)
	return status
}

func (uc *StatusUseCase) resolveMode(ctx context.Context, corpusReady bool) domain.RetrievalMode {
	if uc.configured == domain.ModeSemantic && uc.vector != nil && uc.vector.Healthy(ctx) == nil {
		return domain.ModeSemantic
	}
	if corpusReady {
		return domain.ModeKeywordOnly
	}
	return domain.ModeUnavailable
}
