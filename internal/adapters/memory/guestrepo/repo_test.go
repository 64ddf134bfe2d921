package guestrepo

import (
	"context"
	"testing"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

func strPtr(s string) *string { return &s }

func TestRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	g := guestrepo.Guest{Guest: domain.Guest{ID: "g1", FirstName: "Ada", Email: strPtr("ada@example.com")}}
	if err := r.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.GetByID(ctx, "g1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	*got.Email = "mutated@example.com"

	again, _ := r.GetByID(ctx, "g1")
	if *again.Email != "ada@example.com" {
		t.Fatalf("stored email mutated through returned pointer: %q", *again.Email)
	}
}

func TestRepo_UpdateReleasesOldEmail(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	if err := r.Create(ctx, guestrepo.Guest{Guest: domain.Guest{ID: "g1", FirstName: "Ada", Email: strPtr("ada@example.com")}}); err != nil {
		t.Fatalf("Create g1: %v", err)
	}
	if err := r.Update(ctx, guestrepo.Guest{Guest: domain.Guest{ID: "g1", FirstName: "Ada", Email: strPtr("ada@new.example.com")}}); err != nil {
		t.Fatalf("Update g1: %v", err)
	}
	if err := r.Create(ctx, guestrepo.Guest{Guest: domain.Guest{ID: "g2", FirstName: "Bea", Email: strPtr("ADA@example.com")}}); err != nil {
		t.Fatalf("Create g2 with released email: %v", err)
	}
	if _, err := r.GetByEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
}
