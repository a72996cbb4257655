package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/models"
)

// StoryRepository handles story persistence
type StoryRepository struct {
	db *DB
}

// NewStoryRepository creates a new StoryRepository
func NewStoryRepository(db *DB) *StoryRepository {
	return &StoryRepository{db: db}
}

var _ catalog.Repository = (*StoryRepository)(nil)

const storyColumns = `id, title, subtitle, location, display_date, image, fact, fiction, mood, generated, created_at`

// List retrieves stories newest first. limit <= 0 means no limit.
func (r *StoryRepository) List(ctx context.Context, limit int) ([]*models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories ORDER BY created_at DESC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	var stories []*models.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// Get retrieves a story by ID
func (r *StoryRepository) Get(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	s, err := scanStory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	return s, err
}

// Create inserts a story
func (r *StoryRepository) Create(ctx context.Context, s *models.Story) error {
	query := `
		INSERT INTO stories (` + storyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Title, s.Subtitle, s.Location, s.Date, s.Image,
		s.Fact, s.Fiction, string(s.Mood), s.Generated, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// Count returns the number of stories
func (r *StoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stories: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStory(row rowScanner) (*models.Story, error) {
	s := &models.Story{}
	var mood string
	err := row.Scan(
		&s.ID, &s.Title, &s.Subtitle, &s.Location, &s.Date, &s.Image,
		&s.Fact, &s.Fiction, &mood, &s.Generated, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Mood = models.Mood(mood)
	return s, nil
}
