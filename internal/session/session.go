// Package session provides Valkey-backed login sessions. The browser holds
// a random session ID in an HttpOnly cookie; Valkey holds the session data
// under a hash of that ID, so the keyspace never contains usable cookies.
// Every user's sessions are indexed so they can be revoked together.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "promptui_session"

	// DefaultTTL is how long a session lives without a new login.
	DefaultTTL = 24 * time.Hour

	keyPrefix     = "session:"
	userKeyPrefix = "session:user:"

	// idLength is the byte length of the random session ID.
	idLength = 32
)

// Data is the session payload: who signed in and when.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks cookies Secure; set it when served over TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

// WithTTL returns a copy of the store whose sessions live for ttl.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	cp := *s
	if ttl > 0 {
		cp.ttl = ttl
	}
	return &cp
}

// dataKey maps a session ID to its Valkey key.
func dataKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func userKey(userID uuid.UUID) string {
	return userKeyPrefix + userID.String()
}

// Create starts a session for data.UserID and sets the cookie. The data
// and index writes commit together.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now().UTC()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	key, idx := dataKey(id), userKey(data.UserID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, payload, s.ttl)
		p.SAdd(ctx, idx, key)
		p.Expire(ctx, idx, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	return id, nil
}

// Get returns the session named by the request cookie, or nil when there
// is none or it expired.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, dataKey(cookie.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Destroy ends the request's session and clears the cookie. Without a
// cookie it does nothing, so logging out twice is harmless. Stale index
// entries are left to expire with the index.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	// Clear the cookie even if Valkey is unreachable.
	http.SetCookie(w, s.cookie("", -1))

	if err := s.client.Del(ctx, dataKey(cookie.Value)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

// DestroyUser ends every session of userID and returns how many were
// still live.
func (s *Store) DestroyUser(ctx context.Context, userID uuid.UUID) (int, error) {
	idx := userKey(userID)
	keys, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("session list user: %w", err)
	}

	var live *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(keys) > 0 {
			live = p.Del(ctx, keys...)
		}
		p.Del(ctx, idx)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session destroy user: %w", err)
	}
	if live == nil {
		return 0, nil
	}
	return int(live.Val()), nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
