// Package session provides the Valkey-backed credential store. Every
// issued token is registered under its token id with a TTL equal to the
// token's lifetime; a token whose id is absent from the store is revoked.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds credentials registered without an explicit lifetime.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces credential keys in Valkey to avoid collisions.
	keyPrefix = "credential:"

	// idLength is the byte length of the random token ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Kind distinguishes access credentials from refresh credentials.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Data holds the credential payload stored in Valkey.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages credential lifecycle in Valkey.
type Store struct {
	client *redis.Client
}

// NewStore creates a credential store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create registers a credential for ttl and returns its generated id.
func (s *Store) Create(ctx context.Context, data *Data, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("credential create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("credential marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("credential store: %w", err)
	}

	return id, nil
}

// Get retrieves a live credential. Returns nil if it expired or was revoked.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, nil
	}
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	return decode("credential get", payload, err)
}

// Consume atomically reads and revokes a credential. Of several callers
// racing on one id, only one receives the data; the others get nil.
func (s *Store) Consume(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, nil
	}
	payload, err := s.client.GetDel(ctx, keyPrefix+id).Bytes()
	return decode("credential consume", payload, err)
}

func decode(op string, payload []byte, err error) (*Data, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("credential unmarshal: %w", err)
	}
	return &data, nil
}

// Destroy revokes a credential. Revoking an unknown id is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("credential destroy: %w", err)
	}
	return nil
}

// generateID creates a cryptographically random credential identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
