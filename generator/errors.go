package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/openai/openai-go"
)

// ErrorKind is the closed set of generation failure classes the workflow
// branches on.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindContentPolicy
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindContentPolicy:
		return "content_policy"
	case KindTransport:
		return "transport"
	default:
		return "other"
	}
}

// GenerationError is returned by every LLMClient adapter.
type GenerationError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf extracts the failure class of err. Errors that were never
// classified by an adapter count as KindOther.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindOther
}

// IsContentPolicy reports whether err is a content-policy rejection.
func IsContentPolicy(err error) bool {
	return err != nil && KindOf(err) == KindContentPolicy
}

// ErrContentFiltered marks a completion that came back with a content
// filter finish reason instead of an API error.
var ErrContentFiltered = errors.New("completion stopped by content filter")

// Provider error messages that mean the request was refused on policy
// grounds. Azure reports content_filter / ResponsibleAIPolicyViolation,
// OpenAI content_policy_violation.
var contentPolicyMarkers = []string{
	"content_filter",
	"responsibleaipolicyviolation",
	"content_policy_violation",
	"content management policy",
	"safety_block",
}

var transportMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"unauthorized",
	"authentication",
	"rate limit",
	"too many requests",
	"service unavailable",
	"bad gateway",
	"eof",
}

// Classify wraps err in a GenerationError with its kind decided from typed
// provider errors first and message markers second. Already classified
// errors pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Kind: classifyKind(err), Provider: provider, Err: err}
}

func classifyKind(err error) ErrorKind {
	if errors.Is(err, ErrContentFiltered) {
		return KindContentPolicy
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if hasMarker(apiErr.Code+" "+apiErr.Type+" "+apiErr.Message, contentPolicyMarkers) {
			return KindContentPolicy
		}
		switch {
		case apiErr.StatusCode == 401, apiErr.StatusCode == 403,
			apiErr.StatusCode == 408, apiErr.StatusCode == 429,
			apiErr.StatusCode >= 500:
			return KindTransport
		}
		return KindOther
	}

	msg := err.Error()
	if hasMarker(msg, contentPolicyMarkers) {
		return KindContentPolicy
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	if hasMarker(msg, transportMarkers) {
		return KindTransport
	}
	return KindOther
}

func hasMarker(msg string, markers []string) bool {
	lower := strings.ToLower(msg)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// PlanningError is the fatal failure of the planning stage.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string { return "planning failed: " + e.Err.Error() }

func (e *PlanningError) Unwrap() error { return e.Err }

// ErrNoTitles means the planner answered but no usable chapter title
// survived parsing.
var ErrNoTitles = errors.New("planner produced no chapter titles")
