package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrExceeded is returned when a key has used its allowance for the period.
var ErrExceeded = errors.New("quota exceeded")

type usage struct {
	used            int64
	periodStartedAt time.Time
}

// Service tracks per API key usage of a budget that resets every period
type Service struct {
	limit  int64
	period time.Duration
	now    func() time.Time

	mu    sync.Mutex
	usage map[uuid.UUID]*usage
}

// NewService creates a quota service allowing limit units per period
// ("daily", "weekly", "monthly", "yearly"). A limit <= 0 disables the quota.
func NewService(limit int64, period string) *Service {
	return &Service{
		limit:  limit,
		period: getPeriodDuration(period),
		now:    time.Now,
		usage:  make(map[uuid.UUID]*usage),
	}
}

// CheckAndConsume checks if quota is available and consumes it
func (s *Service) CheckAndConsume(_ context.Context, apiKeyID uuid.UUID, units int64) error {
	if s == nil || s.limit <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u, ok := s.usage[apiKeyID]
	if !ok {
		u = &usage{periodStartedAt: now}
		s.usage[apiKeyID] = u
	}

	// Check if period needs to be reset
	if now.Sub(u.periodStartedAt) > s.period {
		u.used = 0
		u.periodStartedAt = now
	}

	if u.used+units > s.limit {
		return fmt.Errorf("%w: %d/%d used, resets at %s", ErrExceeded, u.used, s.limit,
			u.periodStartedAt.Add(s.period).UTC().Format(time.RFC3339))
	}
	u.used += units
	return nil
}

// Refund returns units consumed by a request that did not complete.
func (s *Service) Refund(apiKeyID uuid.UUID, units int64) {
	if s == nil || s.limit <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.usage[apiKeyID]; ok {
		u.used = max(u.used-units, 0)
	}
}

func getPeriodDuration(period string) time.Duration {
	switch period {
	case "daily":
		return 24 * time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	case "yearly":
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
