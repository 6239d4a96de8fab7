package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// FailureKind classifies a provider call failure and decides whether the
// fallback controller advances, retries, or aborts.
type FailureKind string

const (
	// FailureQuotaExceeded is a rate/quota signal; the controller advances to
	// the next model identifier without retrying this one.
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	// FailureTransient covers timeouts and 5xx-class failures; the controller
	// retries the same identifier with backoff before advancing.
	FailureTransient FailureKind = "transient_error"
	// FailureFatal covers auth/config failures and malformed requests; the
	// controller aborts the whole call without trying further identifiers.
	FailureFatal FailureKind = "fatal_error"
)

type ProviderError struct {
	Provider string
	Model    string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s %s: %v", e.Provider, e.Model, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider, modelName string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Model: modelName, Kind: kind, Err: err}
}

// KindOf extracts the failure classification from an error chain. Errors that
// carry no classification are fatal: behave like a malformed request and do
// not burn further billed calls on them.
func KindOf(err error) FailureKind {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureFatal
}

// Quota keywords mirror the rate-limit signals the Gemini and OpenAI APIs
// put in error messages when the status code is unavailable.
var quotaKeywords = []string{
	"rate limit", "quota", "resource exhausted", "429", "too many requests",
}

var transientKeywords = []string{
	"timeout", "deadline exceeded", "connection reset", "connection refused",
	"unavailable", "overloaded",
}

// ClassifyStatus maps an HTTP-ish status code to a failure kind.
func ClassifyStatus(code int) FailureKind {
	switch {
	case code == 429:
		return FailureQuotaExceeded
	case code == 408 || code >= 500:
		return FailureTransient
	default:
		return FailureFatal
	}
}

// ClassifyMessage falls back to keyword matching when a provider error does
// not expose a status code.
func ClassifyMessage(err error) FailureKind {
	switch {
	case err == nil:
		return FailureFatal
	case utils.ContainsAnyErrorSubstring(err, quotaKeywords...):
		return FailureQuotaExceeded
	case utils.ContainsAnyErrorSubstring(err, transientKeywords...):
		return FailureTransient
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTransient
	}
	return FailureFatal
}

// CallAttempt records one provider call inside a single fallback invocation.
// Attempts are diagnostic only and never persisted.
type CallAttempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Outcome  string        `json:"outcome"`
	Latency  time.Duration `json:"latency"`
	Error    string        `json:"error,omitempty"`
}

const OutcomeSuccess = "success"

// UnavailableError is returned when every identifier in the fallback chain
// has been exhausted. It carries the full attempt history.
type UnavailableError struct {
	Attempts []CallAttempt
}

func (e *UnavailableError) Error() string {
	tried := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		tried = append(tried, attempt.Provider+"/"+attempt.Model)
	}
	return fmt.Sprintf("all providers exhausted after %d attempts (%s)",
		len(e.Attempts), strings.Join(tried, ", "))
}
