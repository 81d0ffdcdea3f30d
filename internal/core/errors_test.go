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
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrExecution("C", "m").Retryable {
		t.Fatalf("execution should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrState("C", "m").Retryable {
		t.Fatalf("state should not be retryable")
	}
	if !ErrFilterInvocation(errors.New("boom")).Retryable {
		t.Fatalf("filter failures are retried by the next refresh")
	}
	if ErrLaunch("m1", "spawn", nil).Retryable {
		t.Fatalf("launch failures are dropped, not retried")
	}
}

func TestTaxonomyCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
		cat  ErrorCategory
	}{
		{ErrConfigParse("a.json", errors.New("eof")), CodeConfigParse, ErrCatValidation},
		{ErrFilterInvocation(errors.New("x")), CodeFilterFailed, ErrCatExecution},
		{ErrLaunch("m1", "spawn", errors.New("x")), CodeLaunchFailed, ErrCatExecution},
		{ErrProcessTermination("m1", errors.New("x")), CodeTerminateFailed, ErrCatExecution},
		{ErrUnknownCommand("foo"), CodeUnknownCommand, ErrCatValidation},
		{ErrTopicNotFound("m1"), CodeTopicNotFound, ErrCatNotFound},
	}
	for _, tc := range cases {
		if !HasCode(tc.err, tc.code) {
			t.Errorf("%v: expected code %s", tc.err, tc.code)
		}
		if !IsCategory(tc.err, tc.cat) {
			t.Errorf("%v: expected category %s", tc.err, tc.cat)
		}
	}
}

func TestErrConfigParse_KeepsPath(t *testing.T) {
	err := ErrConfigParse("/tmp/handled.json", errors.New("unexpected EOF"))
	if err.Details["path"] != "/tmp/handled.json" {
		t.Fatalf("expected path detail, got %v", err.Details)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrExecution("X", "m")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrTimeout("m")) != ErrCatTimeout {
		t.Fatalf("expected timeout category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if HasCode(errors.New("plain"), CodeTopicNotFound) {
		t.Fatalf("plain errors carry no code")
	}
}
