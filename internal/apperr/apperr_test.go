package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
)

func TestKindOfRecognizesWrappedError(t *testing.T) {
	base := apperr.NewNotFound("session missing")
	wrapped := fmt.Errorf("load session: %w", base)

	if got := apperr.KindOf(wrapped); got != apperr.NotFound {
		t.Fatalf("expected KindOf to see through fmt.Errorf wrapping, got %v", got)
	}
}

func TestKindOfDefaultsToDatabaseForUnrecognizedError(t *testing.T) {
	if got := apperr.KindOf(errors.New("boom")); got != apperr.Database {
		t.Fatalf("expected an unrecognized error to default to Database, got %v", got)
	}
}

func TestErrorMessageIncludesWrappedCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.NewDatabase("insert trade", cause)

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a non-empty error message")
	}
	if !errors.Is(err, cause) && errors.Unwrap(err) != cause {
		t.Fatal("expected Unwrap to expose the wrapped cause")
	}
}

func TestNewNotFoundHasNilCause(t *testing.T) {
	err := apperr.NewNotFound("strategy missing")
	if err.Unwrap() != nil {
		t.Fatal("expected NewNotFound to carry no wrapped cause")
	}
	if err.Kind != apperr.NotFound {
		t.Fatalf("expected Kind NotFound, got %v", err.Kind)
	}
}
