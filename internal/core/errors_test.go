package core

import (
	"errors"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatGateway, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if ErrNotFound("document", "d1").Retryable {
		t.Fatalf("not found should not be retryable")
	}
	if ErrAlreadyExists("analysis", "d1").Retryable {
		t.Fatalf("already exists should not be retryable")
	}
	if ErrGateway("C", "m").Retryable {
		t.Fatalf("gateway should not be retryable")
	}
	if !ErrRateLimit("m").Retryable {
		t.Fatalf("rate limit should be retryable")
	}
	if ErrPromptMissing("generator", "themes").Retryable {
		t.Fatalf("prompt missing should not be retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrRateLimit("m")) != ErrCatRateLimit {
		t.Fatalf("expected rate_limit category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrAlreadyExists("analysis", "d1"), ErrCatAlreadyExists) {
		t.Fatalf("expected category match")
	}
}

func TestIsGatewayError(t *testing.T) {
	if !IsGatewayError(ErrGateway(CodeEngineFailed, "exit 1")) {
		t.Fatalf("expected gateway category to count")
	}
	if !IsGatewayError(ErrRateLimit("429")) {
		t.Fatalf("expected rate limit to count as gateway")
	}
	if IsGatewayError(ErrValidation("C", "m")) {
		t.Fatalf("validation is not a gateway error")
	}
	if IsGatewayError(errors.New("plain")) {
		t.Fatalf("plain error is not a gateway error")
	}
}

func TestIsGatewayError_Wrapped(t *testing.T) {
	wrapped := &DomainError{
		Category: ErrCatGateway,
		Code:     CodeEngineTimeout,
		Message:  "deadline",
	}
	if !IsGatewayError(wrapped) {
		t.Fatalf("expected wrapped gateway error to be detected")
	}
}
