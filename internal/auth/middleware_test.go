package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/database"
	"github.com/snappy-loop/gallery/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type fakeKeyStore struct {
	keys map[string]*models.APIKey
}

func (f *fakeKeyStore) GetByKeyLookup(_ context.Context, lookup string) (*models.APIKey, error) {
	k, ok := f.keys[lookup]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return k, nil
}

func storedKey(t *testing.T, plain, status string) *models.APIKey {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &models.APIKey{ID: uuid.New(), KeyHash: string(hash), Status: status}
}

func TestMiddleware(t *testing.T) {
	active := storedKey(t, "gk_active", "active")
	store := &fakeKeyStore{keys: map[string]*models.APIKey{
		database.KeyLookupHash("gk_active"):   active,
		database.KeyLookupHash("gk_disabled"): storedKey(t, "gk_disabled", "disabled"),
	}}
	svc, err := NewService(store, []string{"static-secret"})
	if err != nil {
		t.Fatal(err)
	}

	var gotKeyID uuid.UUID
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeyID, _ = GetAPIKeyID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty key", "Bearer  ", http.StatusUnauthorized},
		{"unknown key", "Bearer gk_nope", http.StatusUnauthorized},
		{"disabled key", "Bearer gk_disabled", http.StatusUnauthorized},
		{"stored key", "Bearer gk_active", http.StatusNoContent},
		{"static key", "bearer static-secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/stories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/stories", nil)
	req.Header.Set("Authorization", "Bearer gk_active")
	h.ServeHTTP(rec, req)
	if gotKeyID != active.ID {
		t.Errorf("key id in context = %s, want %s", gotKeyID, active.ID)
	}
}

func TestValidateAPIKey_NoStore(t *testing.T) {
	svc, _ := NewService(nil, nil)
	if _, err := svc.ValidateAPIKey(context.Background(), "anything"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestGetAPIKeyID_Missing(t *testing.T) {
	if _, err := GetAPIKeyID(context.Background()); err == nil {
		t.Error("expected error")
	}
}
