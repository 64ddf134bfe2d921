package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAs_UnwrapsChain(t *testing.T) {
	t.Parallel()

	base := NotFound("GUEST_NOT_FOUND", "guest not found")
	wrapped := fmt.Errorf("loading guest: %w", base)

	ae, ok := As(wrapped)
	if !ok || ae.Status != http.StatusNotFound {
		t.Fatalf("As()=%v,%v want 404 error", ae, ok)
	}
	if !Is(wrapped, "GUEST_NOT_FOUND") {
		t.Fatalf("Is() = false, want true")
	}
	if Is(fmt.Errorf("plain"), "GUEST_NOT_FOUND") {
		t.Fatalf("Is(plain) = true, want false")
	}
}

func TestValidation_Details(t *testing.T) {
	t.Parallel()

	e := Validation("email", "must be non-empty")
	if e.Status != http.StatusUnprocessableEntity || e.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if e.Details["email"] != "must be non-empty" {
		t.Fatalf("details=%v", e.Details)
	}
	if e.Error() != "invalid email" {
		t.Fatalf("Error()=%q", e.Error())
	}
}
