package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorCodesAndStatuses(t *testing.T) {
	cases := []struct {
		err    *Error
		code   string
		status int
	}{
		{Validation("bad input"), CodeValidation, http.StatusBadRequest},
		{Unauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{NotFound("missing"), CodeNotFound, http.StatusNotFound},
		{AlreadyCompleted("done"), CodeAlreadyCompleted, http.StatusConflict},
		{NoProgress("empty"), CodeNoProgress, http.StatusBadRequest},
		{InsufficientCandidates("short"), CodeInsufficientCandidates, http.StatusUnprocessableEntity},
		{OracleFailure("oracle down"), CodeOracleFailure, http.StatusBadGateway},
		{PersistenceFailure(errors.New("tx aborted")), CodePersistenceFailure, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if c.err.Code != c.code {
			t.Fatalf("expected code %s, got %s", c.code, c.err.Code)
		}
		if c.err.Status != c.status {
			t.Fatalf("code %s: expected status %d, got %d", c.code, c.status, c.err.Status)
		}
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := AlreadyCompleted("instance finished")
	wrapped := fmt.Errorf("submit failed: %w", inner)

	if !Is(wrapped, CodeAlreadyCompleted) {
		t.Fatalf("expected wrapped error to match %s", CodeAlreadyCompleted)
	}
	if Is(wrapped, CodeNotFound) {
		t.Fatalf("did not expect wrapped error to match %s", CodeNotFound)
	}
	if Is(errors.New("plain"), CodeAlreadyCompleted) {
		t.Fatalf("plain error should never match a code")
	}
}

func TestHTTPStatusDefaults(t *testing.T) {
	status, code := HTTPStatus(errors.New("untyped"))
	if status != http.StatusInternalServerError || code != "" {
		t.Fatalf("expected 500 with empty code for untyped error, got %d %q", status, code)
	}

	status, code = HTTPStatus(fmt.Errorf("outer: %w", NotFound("gone")))
	if status != http.StatusNotFound || code != CodeNotFound {
		t.Fatalf("expected 404 %s, got %d %q", CodeNotFound, status, code)
	}

	status, _ = HTTPStatus(&Error{Code: CodeValidation})
	if status != http.StatusInternalServerError {
		t.Fatalf("zero status should default to 500, got %d", status)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := Validation("field %s required", "exam_id").Error(); got != "field exam_id required" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := (&Error{Code: CodeNoProgress}).Error(); got != CodeNoProgress {
		t.Fatalf("expected code as fallback message, got %q", got)
	}
}
