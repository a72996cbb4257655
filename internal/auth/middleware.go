package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/database"
	"github.com/snappy-loop/gallery/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey is the type for context keys
type ContextKey string

// APIKeyIDKey is the context key for the authenticated API key ID
const APIKeyIDKey ContextKey = "api_key_id"

// ErrUnauthorized is returned for missing, unknown or disabled keys.
var ErrUnauthorized = errors.New("unauthorized")

// KeyStore looks up stored keys by lookup hash (database.APIKeyRepository).
type KeyStore interface {
	GetByKeyLookup(ctx context.Context, lookup string) (*models.APIKey, error)
}

// Service handles authentication
type Service struct {
	store  KeyStore
	static map[string]*models.APIKey // lookup hash -> key
}

// NewService creates an auth service. store may be nil; staticKeys are plain
// keys from configuration, hashed here so they are verified like stored ones.
func NewService(store KeyStore, staticKeys []string) (*Service, error) {
	s := &Service{store: store, static: make(map[string]*models.APIKey)}
	for i, k := range staticKeys {
		hash, err := bcrypt.GenerateFromPassword([]byte(k), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash static key %d: %w", i, err)
		}
		s.static[database.KeyLookupHash(k)] = &models.APIKey{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("static-key-"+database.KeyLookupHash(k))),
			Label:     fmt.Sprintf("static-%d", i),
			KeyHash:   string(hash),
			Status:    "active",
			CreatedAt: time.Now(),
		}
	}
	return s, nil
}

// Middleware creates an authentication middleware
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, err := BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		storedKey, err := s.ValidateAPIKey(r.Context(), apiKey)
		if err != nil {
			log.Debug().Err(err).Msg("API key rejected")
			writeJSONError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyIDKey, storedKey.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the key from an "Authorization: Bearer <key>" value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	key := strings.TrimSpace(parts[1])
	if key == "" {
		return "", fmt.Errorf("empty api key")
	}
	return key, nil
}

// GetAPIKeyID retrieves the API key ID from context
func GetAPIKeyID(ctx context.Context) (uuid.UUID, error) {
	keyID, ok := ctx.Value(APIKeyIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("api key id not found in context")
	}
	return keyID, nil
}

// ValidateAPIKey validates an API key and returns the associated key info
func (s *Service) ValidateAPIKey(ctx context.Context, apiKey string) (*models.APIKey, error) {
	lookup := database.KeyLookupHash(apiKey)

	storedKey, ok := s.static[lookup]
	if !ok {
		if s.store == nil {
			return nil, fmt.Errorf("%w: unknown api key", ErrUnauthorized)
		}
		var err error
		storedKey, err = s.store.GetByKeyLookup(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("%w: api key not found: %v", ErrUnauthorized, err)
		}
	}

	if storedKey.Status != "active" {
		log.Warn().Str("key_id", storedKey.ID.String()).Msg("API key is not active")
		return nil, fmt.Errorf("%w: api key is disabled", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedKey.KeyHash), []byte(apiKey)); err != nil {
		return nil, fmt.Errorf("%w: invalid api key", ErrUnauthorized)
	}

	return storedKey, nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
