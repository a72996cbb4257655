package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/migrations"
)

func connectForTest(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	db, err := Connect(dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := migrations.Run(db.SQLDB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoryRepository_CreateGetList(t *testing.T) {
	db := connectForTest(t)
	repo := NewStoryRepository(db)
	ctx := context.Background()

	story := &models.Story{
		ID:        uuid.New(),
		Title:     "UNTITLED MEMORY",
		Subtitle:  "a rusted bicycle",
		Location:  "IMAGINATION",
		Date:      "AI GENERATED",
		Fiction:   "The bell still rings when the wind passes.",
		Mood:      models.MoodArtificial,
		Generated: true,
		CreatedAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, story); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM stories WHERE id = $1`, story.ID)
	})

	got, err := repo.Get(ctx, story.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fiction != story.Fiction || got.Mood != story.Mood || !got.Generated {
		t.Errorf("Get returned %+v", got)
	}

	list, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != story.ID {
		t.Errorf("newest story should be listed first, got %+v", list)
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_RecordIsIdempotent(t *testing.T) {
	db := connectForTest(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	since := time.Now().Add(-time.Second)
	ev := &models.Event{
		ID:         uuid.New(),
		Type:       "test.event." + uuid.NewString(),
		Meta:       map[string]interface{}{"size": 48},
		OccurredAt: time.Now(),
	}
	for i := 0; i < 2; i++ {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}
	n, err := repo.CountByType(ctx, ev.Type, since)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 recorded event, got %d", n)
	}
}
