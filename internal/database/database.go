package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Startup ping policy. Compose starts the services alongside PostgreSQL.
const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// DB is the gallery's PostgreSQL handle.
type DB struct {
	*sql.DB
}

// Connect opens the pool and waits for the server to answer, retrying a few
// times with a growing delay.
func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Story reads and event inserts are short; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready, retrying")
		time.Sleep(time.Duration(attempt) * connectBackoff)
	}

	log.Info().Msg("Database connection established")
	return &DB{DB: db}, nil
}

// Close closes the pool
func (db *DB) Close() error {
	log.Info().Msg("Closing database connection")
	return db.DB.Close()
}

// SQLDB returns the underlying *sql.DB for migrations.
func (db *DB) SQLDB() *sql.DB {
	return db.DB
}

// Health pings the database with a short deadline.
func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
