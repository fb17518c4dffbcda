package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")

	// Generation failure kinds, classified once at the client boundary.
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	ErrTransient     = errors.New("temporary failure")
	ErrEmptyResponse = errors.New("empty generation response")

	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrCredentialMissing = errors.New("missing api credential")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
