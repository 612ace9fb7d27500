// Package models holds the wire-level types shared across the gateway's
// components: requests, classifications, context, tools, and workflows.
package models

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a gateway error for HTTP status mapping and
// propagation policy (see spec §7).
type ErrorKind string

const (
	KindBadRequest          ErrorKind = "bad_request"
	KindModelNotFound       ErrorKind = "model_not_found"
	KindBackendUnavailable  ErrorKind = "backend_unavailable"
	KindBackendTimeout      ErrorKind = "backend_timeout"
	KindUpstreamFailure     ErrorKind = "upstream_failure"
	KindTransportFailure    ErrorKind = "transport_failure"
	KindMissingParam        ErrorKind = "missing_param"
	KindNotFound            ErrorKind = "not_found"
	KindWriteFailure        ErrorKind = "write_failure"
	KindInvalidPlan         ErrorKind = "invalid_plan"
	KindWorkflowNotFound    ErrorKind = "workflow_not_found"
	KindInvalidWorkflowState ErrorKind = "invalid_workflow_state"
	KindInternal            ErrorKind = "internal"
)

// Status returns the HTTP status code associated with the error kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindBadRequest, KindMissingParam, KindInvalidPlan:
		return 400
	case KindModelNotFound, KindNotFound, KindWorkflowNotFound:
		return 404
	case KindInvalidWorkflowState:
		return 409
	case KindBackendTimeout:
		return 504
	case KindUpstreamFailure, KindBackendUnavailable, KindTransportFailure:
		return 502
	default:
		return 500
	}
}

// GatewayError is the structured error type propagated to the HTTP surface.
// It wraps an underlying cause while carrying a stable Kind for status
// mapping and client-facing messages (spec §7's error envelope).
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// NewError builds a GatewayError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal when
// err is not (or does not wrap) a *GatewayError.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}
