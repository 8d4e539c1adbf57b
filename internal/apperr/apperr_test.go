package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("username", "too short"), http.StatusBadRequest},
		{Unauthenticated("Not authenticated"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("User not found"), http.StatusNotFound},
		{Conflict("Video already completed"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("missing")), http.StatusNotFound},
	}

	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestValidatorCollectsEveryField(t *testing.T) {
	var v Validator
	v.Check(false, "quizId", "quizId is required")
	v.Check(true, "score", "score must not be negative")
	v.Check(false, "totalQuestions", "totalQuestions must be positive")

	err := v.Err()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Kind != KindValidation {
		t.Errorf("kind = %v, want validation", e.Kind)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(e.Fields))
	}
	if e.Fields[0].Field != "quizId" || e.Fields[1].Field != "totalQuestions" {
		t.Errorf("unexpected fields %+v", e.Fields)
	}
}

func TestValidatorNoErrors(t *testing.T) {
	var v Validator
	v.Check(true, "username", "required")
	if err := v.Err(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
