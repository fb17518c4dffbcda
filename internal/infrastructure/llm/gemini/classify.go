package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/resilience"
)

// Markers used by the hosted backend to signal rate/usage limits. The
// substring list is a backend-adapter detail; the rest of the system only
// ever sees domain.ErrQuotaExceeded.
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"resource_exhausted",
	"too many requests",
	"limit exceeded",
}

func isQuotaError(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if statusErr.APIStatus == "RESOURCE_EXHAUSTED" {
			return true
		}
		message := strings.ToLower(statusErr.Message)
		for _, marker := range quotaMarkers {
			if strings.Contains(message, marker) {
				return true
			}
		}
	}
	return false
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	// Quota exhaustion is the backend doing its job; tier fallback is the
	// orchestrator's decision, not a low-level retry.
	if isQuotaError(err) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// wrapGenerationError folds any transport failure into the typed kinds
// the orchestrator branches on.
func wrapGenerationError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isQuotaError(err) {
		return domain.WrapError(domain.ErrQuotaExceeded, operation, err)
	}
	return domain.WrapError(domain.ErrTransient, operation, err)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
