package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a session history. Turns are append
// only; the answering core is stateless across them.
type ConversationTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PipelineStatus is the readiness snapshot reported by the status facade.
type PipelineStatus struct {
	APIKeyPresent   bool          `json:"api_key_present"`
	CorpusReady     bool          `json:"corpus_ready"`
	GenerationReady bool          `json:"generation_ready"`
	DocumentCount   int           `json:"document_count"`
	Mode            RetrievalMode `json:"mode"`
}
