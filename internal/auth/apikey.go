// Package auth provides API-key authentication, per-client rate limiting,
// and TOTP-gated admin key issuance for the write surface of the gateway.
//
// Keys are random "sk_"-prefixed strings; only their SHA-256 digest is
// stored. The read-only chart endpoints are open — auth guards ingest and
// key management.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ctxKey string

const apiKeyIDKey ctxKey = "api_key_id"

// KeyStore manages API keys in the shared SQLite database.
type KeyStore struct {
	db *sql.DB

	// OnReject, if set, is called for every rejected request (for metrics).
	OnReject func()
}

// NewKeyStore creates a KeyStore over the given database. The api_keys
// table is created by the sqlite store's schema.
func NewKeyStore(db *sql.DB) *KeyStore {
	return &KeyStore{db: db}
}

// Generate creates and persists a new API key, returning the plaintext
// key exactly once. expiresAt may be zero for a non-expiring key.
func (ks *KeyStore) Generate(label string, expiresAt time.Time) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	key := "sk_" + hex.EncodeToString(raw)

	var expires interface{}
	if !expiresAt.IsZero() {
		expires = expiresAt.Unix()
	}
	_, err := ks.db.Exec(
		`INSERT INTO api_keys (key_hash, label, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		HashAPIKey(key), label, time.Now().Unix(), expires,
	)
	if err != nil {
		return "", fmt.Errorf("persist key: %w", err)
	}
	return key, nil
}

// Revoke deactivates a key by its plaintext value.
func (ks *KeyStore) Revoke(key string) error {
	_, err := ks.db.Exec(
		`UPDATE api_keys SET is_active = 0 WHERE key_hash = ?`, HashAPIKey(key),
	)
	return err
}

// validate looks up an extracted key and returns its ID.
func (ks *KeyStore) validate(ctx context.Context, key string) (int64, error) {
	var id int64
	var expiresAt sql.NullInt64
	err := ks.db.QueryRowContext(ctx,
		`SELECT id, expires_at FROM api_keys WHERE key_hash = ? AND is_active = 1`,
		HashAPIKey(key),
	).Scan(&id, &expiresAt)
	if err != nil {
		return 0, fmt.Errorf("unknown key")
	}
	if expiresAt.Valid && time.Now().Unix() > expiresAt.Int64 {
		return 0, fmt.Errorf("key expired")
	}
	return id, nil
}

// RequireAPIKey wraps a handler with API-key validation.
// Keys are extracted from (in order):
//  1. X-API-Key header
//  2. Authorization: Bearer sk_... header
//  3. api_key query parameter
func (ks *KeyStore) RequireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			ks.reject(w, http.StatusUnauthorized, "API key required")
			return
		}

		id, err := ks.validate(r.Context(), key)
		if err != nil {
			ks.reject(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		// Touch last_used_at off the request path.
		go func() {
			ks.db.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), id)
		}()

		next(w, r.WithContext(context.WithValue(r.Context(), apiKeyIDKey, id)))
	}
}

// KeyIDFromContext returns the authenticated key ID, if any.
func KeyIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(apiKeyIDKey).(int64)
	return id, ok
}

func (ks *KeyStore) reject(w http.ResponseWriter, code int, msg string) {
	if ks.OnReject != nil {
		ks.OnReject()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer sk_") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("api_key")
}

// HashAPIKey returns the SHA-256 hex digest of an API key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
