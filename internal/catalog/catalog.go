package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/models"
)

// ErrNotFound is returned when a story does not exist.
var ErrNotFound = errors.New("story not found")

// Repository is the story store used by the gallery. List returns newest first.
type Repository interface {
	List(ctx context.Context, limit int) ([]*models.Story, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Story, error)
	Create(ctx context.Context, story *models.Story) error
	Count(ctx context.Context) (int, error)
}

// EnsureSeeded installs the curated stories when the repository is empty.
func EnsureSeeded(ctx context.Context, repo Repository) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count stories: %w", err)
	}
	if n > 0 {
		log.Debug().Int("stories", n).Msg("Catalog already seeded")
		return nil
	}
	for _, s := range Seed() {
		if err := repo.Create(ctx, s); err != nil {
			return fmt.Errorf("seed story %q: %w", s.Title, err)
		}
	}
	log.Info().Int("stories", len(seedStories)).Msg("Catalog seeded")
	return nil
}

// MemoryStore keeps stories in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	stories map[uuid.UUID]*models.Story
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stories: make(map[uuid.UUID]*models.Story)}
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*models.Story, error) {
	m.mu.RLock()
	out := make([]*models.Story, 0, len(m.stories))
	for _, s := range m.stories {
		cp := *s
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Create(_ context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		return fmt.Errorf("story id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[story.ID]; exists {
		return fmt.Errorf("story %s already exists", story.ID)
	}
	cp := *story
	m.stories[story.ID] = &cp
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stories), nil
}
