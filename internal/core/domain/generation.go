package domain

import "strings"

// ModelSpec describes one generation model tier. Lower priority means
// tried earlier (cheapest/fastest first).
type ModelSpec struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
}

// ModelTier is an immutable, priority-ordered list of generation models.
// The orchestrator iterates it per request; nothing mutates it after
// construction.
type ModelTier struct {
	models []ModelSpec
}

func NewModelTier(ids ...string) ModelTier {
	models := make([]ModelSpec, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		models = append(models, ModelSpec{ID: id, Priority: len(models) + 1})
	}
	return ModelTier{models: models}
}

func ParseModelTier(commaSeparated string) ModelTier {
	return NewModelTier(strings.Split(commaSeparated, ",")...)
}

func (t ModelTier) Len() int { return len(t.models) }

func (t ModelTier) At(i int) ModelSpec { return t.models[i] }

func (t ModelTier) Models() []ModelSpec {
	out := make([]ModelSpec, len(t.models))
	copy(out, t.models)
	return out
}

type AnswerOutcome string

const (
	OutcomeGenerated        AnswerOutcome = "generated"
	OutcomeDocumentFallback AnswerOutcome = "document_fallback"
	OutcomeNoDocuments      AnswerOutcome = "no_documents"
	OutcomeValidation       AnswerOutcome = "validation"
	OutcomeError            AnswerOutcome = "error"
)

// AnswerResult is the terminal outcome of one answering request. Text is
// always non-empty; failures are communicated through Outcome and message
// content, never through an error value.
type AnswerResult struct {
	Text     string        `json:"text"`
	Outcome  AnswerOutcome `json:"outcome"`
	Model    string        `json:"model,omitempty"`
	Attempts int           `json:"attempts"`
	Sources  []ScoredChunk `json:"sources,omitempty"`
}
