// Package playback hands encoded narration to a playback surface through
// short-lived addressable references.
//
// A Reference exists from Acquire until Release, ReleaseSession or Sweep;
// each session holds at most one current reference, and acquiring a new one
// releases the previous one.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/wav"
)

// ErrNotFound is returned for unknown or already released references.
var ErrNotFound = errors.New("playback reference not found")

// ReleaseReason says why a reference went away.
type ReleaseReason string

const (
	ReasonReleased ReleaseReason = "released"
	ReasonReplaced ReleaseReason = "replaced"
	ReasonSession  ReleaseReason = "session"
	ReasonExpired  ReleaseReason = "expired"
)

// Reference is an addressable handle to one encoded container.
type Reference struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	URL       string    `json:"url"`
	Key       string    `json:"-"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Duration  float64   `json:"duration"` // seconds
	ExpiresAt time.Time `json:"expires_at"`
}

// Object is what a Store persists for a reference.
type Object struct {
	ID       uuid.UUID
	Key      string
	Data     []byte
	MIMEType string
	TTL      time.Duration
}

// Store keeps container bytes addressable until deleted.
type Store interface {
	Put(ctx context.Context, obj Object) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// OnAcquire registers a callback run after a reference is acquired.
func OnAcquire(fn func(Reference)) Option {
	return func(r *Registry) { r.onAcquire = fn }
}

// OnRelease registers a callback run after a reference is released.
func OnRelease(fn func(Reference, ReleaseReason)) Option {
	return func(r *Registry) { r.onRelease = fn }
}

// Registry tracks live references and their per-session ownership.
type Registry struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	onAcquire func(Reference)
	onRelease func(Reference, ReleaseReason)

	mu      sync.Mutex
	refs    map[uuid.UUID]*Reference
	current map[uuid.UUID]uuid.UUID // session -> reference
}

// NewRegistry creates a registry over store. References expire after ttl.
func NewRegistry(store Store, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		refs:    make(map[uuid.UUID]*Reference),
		current: make(map[uuid.UUID]uuid.UUID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ObjectKey is the storage key of a narration container.
func ObjectKey(sessionID, id uuid.UUID) string {
	return fmt.Sprintf("narration/%s/%s.wav", sessionID, id)
}

// Acquire stores container and makes it the session's current reference,
// releasing the previous one.
func (r *Registry) Acquire(ctx context.Context, sessionID uuid.UUID, container []byte, mimeType string) (*Reference, error) {
	return r.acquire(ctx, sessionID, container, mimeType, true)
}

// AcquireDetached stores container for ownerID without making it current.
// Other references of the owner are left alone; the new one goes away on
// Release, ReleaseSession or expiry.
func (r *Registry) AcquireDetached(ctx context.Context, ownerID uuid.UUID, container []byte, mimeType string) (*Reference, error) {
	return r.acquire(ctx, ownerID, container, mimeType, false)
}

func (r *Registry) acquire(ctx context.Context, sessionID uuid.UUID, container []byte, mimeType string, current bool) (*Reference, error) {
	if len(container) == 0 {
		return nil, fmt.Errorf("empty container")
	}
	if mimeType == "" {
		mimeType = wav.MIMEType
	}

	id := uuid.New()
	key := ObjectKey(sessionID, id)
	url, err := r.store.Put(ctx, Object{ID: id, Key: key, Data: container, MIMEType: mimeType, TTL: r.ttl})
	if err != nil {
		return nil, fmt.Errorf("store container: %w", err)
	}

	ref := &Reference{
		ID:        id,
		SessionID: sessionID,
		URL:       url,
		Key:       key,
		MIMEType:  mimeType,
		Size:      int64(len(container)),
		ExpiresAt: r.now().Add(r.ttl),
	}
	if h, err := wav.ParseHeader(container); err == nil {
		ref.Duration = h.Duration()
	}

	r.mu.Lock()
	var replaced *Reference
	if current {
		if prevID, ok := r.current[sessionID]; ok {
			replaced = r.refs[prevID]
			delete(r.refs, prevID)
		}
		r.current[sessionID] = id
	}
	r.refs[id] = ref
	r.mu.Unlock()

	if replaced != nil {
		r.drop(ctx, replaced, ReasonReplaced)
	}

	log.Debug().
		Str("reference_id", id.String()).
		Str("session_id", sessionID.String()).
		Int64("size", ref.Size).
		Float64("duration_s", ref.Duration).
		Bool("detached", !current).
		Msg("Playback reference acquired")

	if r.onAcquire != nil {
		r.onAcquire(*ref)
	}

	out := *ref
	return &out, nil
}

// Release releases one reference. Releasing twice returns ErrNotFound.
func (r *Registry) Release(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	ref, ok := r.refs[id]
	if ok {
		r.forget(ref)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return r.drop(ctx, ref, ReasonReleased)
}

// ReleaseSession releases every reference owned by sessionID and returns how many.
func (r *Registry) ReleaseSession(ctx context.Context, sessionID uuid.UUID) int {
	r.mu.Lock()
	var owned []*Reference
	for _, ref := range r.refs {
		if ref.SessionID == sessionID {
			owned = append(owned, ref)
		}
	}
	for _, ref := range owned {
		r.forget(ref)
	}
	r.mu.Unlock()

	for _, ref := range owned {
		r.drop(ctx, ref, ReasonSession)
	}
	return len(owned)
}

// Sweep releases references that expired at or before now and returns how many.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var expired []*Reference
	for _, ref := range r.refs {
		if !ref.ExpiresAt.After(now) {
			expired = append(expired, ref)
		}
	}
	for _, ref := range expired {
		r.forget(ref)
	}
	r.mu.Unlock()

	for _, ref := range expired {
		r.drop(ctx, ref, ReasonExpired)
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Swept playback references")
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, r.now())
		}
	}
}

// Lookup returns a live, unexpired reference.
func (r *Registry) Lookup(id uuid.UUID) (Reference, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refs[id]
	if !ok || !ref.ExpiresAt.After(r.now()) {
		return Reference{}, false
	}
	return *ref, true
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}

// forget removes ref from the maps. Caller holds r.mu.
func (r *Registry) forget(ref *Reference) {
	delete(r.refs, ref.ID)
	if r.current[ref.SessionID] == ref.ID {
		delete(r.current, ref.SessionID)
	}
}

// drop deletes the stored object. The reference is gone from the registry
// even when the store fails; the object then outlives it until the bucket's
// own lifecycle removes it.
func (r *Registry) drop(ctx context.Context, ref *Reference, reason ReleaseReason) error {
	err := r.store.Delete(context.WithoutCancel(ctx), ref.Key)
	if err != nil {
		log.Error().
			Err(err).
			Str("reference_id", ref.ID.String()).
			Str("key", ref.Key).
			Msg("Failed to delete playback object")
	} else {
		log.Debug().
			Str("reference_id", ref.ID.String()).
			Str("reason", string(reason)).
			Msg("Playback reference released")
	}
	if r.onRelease != nil {
		r.onRelease(*ref, reason)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref.Key, err)
	}
	return nil
}
