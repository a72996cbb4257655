package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/models"
)

func TestSeed_StableIDsAndOrder(t *testing.T) {
	a, b := Seed(), Seed()
	if len(a) != 10 {
		t.Fatalf("expected 10 curated stories, got %d", len(a))
	}
	seen := map[uuid.UUID]bool{}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("story %d ID not stable: %s vs %s", i, a[i].ID, b[i].ID)
		}
		if seen[a[i].ID] {
			t.Errorf("duplicate ID %s", a[i].ID)
		}
		seen[a[i].ID] = true
		if a[i].Fiction == "" || a[i].Fact == "" || a[i].Title == "" {
			t.Errorf("story %d missing text", i)
		}
		if i > 0 && !a[i].CreatedAt.Before(a[i-1].CreatedAt) {
			t.Errorf("story %d should be older than story %d", i, i-1)
		}
	}
}

func TestEnsureSeeded_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := EnsureSeeded(ctx, store); err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}
	if err := EnsureSeeded(ctx, store); err != nil {
		t.Fatalf("EnsureSeeded (second): %v", err)
	}
	n, _ := store.Count(ctx)
	if n != 10 {
		t.Errorf("expected 10 stories after seeding twice, got %d", n)
	}

	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Title != Seed()[0].Title {
		t.Errorf("first story = %q, want %q", list[0].Title, Seed()[0].Title)
	}
}

func TestMemoryStore_NewestFirstAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := EnsureSeeded(ctx, store); err != nil {
		t.Fatal(err)
	}

	generated := &models.Story{
		ID:        uuid.New(),
		Title:     "UNTITLED MEMORY",
		Fiction:   "...",
		Mood:      models.MoodArtificial,
		Generated: true,
		CreatedAt: time.Now(),
	}
	if err := store.Create(ctx, generated); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, generated); err == nil {
		t.Error("expected duplicate create to fail")
	}

	list, err := store.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("limit ignored: got %d", len(list))
	}
	if list[0].ID != generated.ID {
		t.Errorf("generated story should be listed first")
	}

	list[0].Title = "mutated"
	got, err := store.Get(ctx, generated.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "UNTITLED MEMORY" {
		t.Error("List returned a shared pointer")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
