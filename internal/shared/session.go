package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// rotationGrace keeps a rotated token resolvable for requests already in flight.
const rotationGrace = 30 * time.Second

// maxRotationHops bounds how far Destroy follows tombstones to their successors.
const maxRotationHops = 8

var errSessionGone = errors.New("session gone")

// Resolution is the outcome of validating a request's session.
// Cookies must reach the client whatever the caller decides to do next.
type Resolution struct {
	Subject *rbac.Subject
	LoginID string
	Cookies []*http.Cookie
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client      *redis.Client
	cookieName  string
	ttl         time.Duration
	rotateAfter time.Duration
	secure      bool
	now         func() time.Time
	rotations   singleflight.Group
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	LoginID   string    `json:"login_id"`
	StartedAt time.Time `json:"started_at"`
	IssuedAt  time.Time `json:"issued_at"`
	RotatedTo string    `json:"rotated_to,omitempty"`
}

// NewSessionManager constructs a SessionManager. A zero rotateAfter disables token rotation.
func NewSessionManager(client *redis.Client, cookieName string, ttl, rotateAfter time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:      client,
		cookieName:  cookieName,
		ttl:         ttl,
		rotateAfter: rotateAfter,
		secure:      secure,
		now:         time.Now,
	}
}

// Create starts a session for the user and returns the cookie to set.
func (sm *SessionManager) Create(ctx context.Context, userID string, role rbac.Role) (*http.Cookie, error) {
	if userID == "" {
		return nil, errors.New("session: user id required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("session: %w: %q", rbac.ErrInvalidRole, role)
	}
	id := sm.generateSessionID()
	now := sm.now().UTC()
	payload := sessionPayload{
		UserID:    userID,
		Role:      role.String(),
		LoginID:   sm.generateSessionID(),
		StartedAt: now,
		IssuedAt:  now,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(id), data, sm.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: store: %w", err)
	}
	return sm.cookie(id, now.Add(sm.ttl)), nil
}

// ValidateOrRefresh resolves the subject behind the request cookies.
// Stale tokens yield a clearing cookie; tokens older than the rotation age are replaced.
// Rotation never extends a session past the TTL measured from sign-in.
// Only store failures are returned as errors.
func (sm *SessionManager) ValidateOrRefresh(ctx context.Context, cookies []*http.Cookie) (Resolution, error) {
	id := sm.tokenFrom(cookies)
	if id == "" {
		return Resolution{}, nil
	}
	stored, err := sm.load(ctx, id)
	if errors.Is(err, errSessionGone) {
		return sm.cleared(), nil
	}
	if err != nil {
		return Resolution{}, err
	}

	if stored.RotatedTo != "" {
		successor, err := sm.load(ctx, stored.RotatedTo)
		if errors.Is(err, errSessionGone) {
			return sm.cleared(), nil
		}
		if err != nil {
			return Resolution{}, err
		}
		if !sm.now().Before(sm.expiresAt(successor)) {
			return sm.cleared(), nil
		}
		return sm.resolve(stored.RotatedTo, successor, true), nil
	}

	if !sm.now().Before(sm.expiresAt(stored)) {
		return sm.cleared(), nil
	}
	if sm.rotateAfter > 0 && sm.now().Sub(stored.IssuedAt) >= sm.rotateAfter {
		newID, err := sm.rotate(ctx, id, stored)
		if errors.Is(err, errSessionGone) {
			return sm.cleared(), nil
		}
		if err != nil {
			return Resolution{}, err
		}
		return sm.resolve(newID, stored, true), nil
	}
	return sm.resolve(id, stored, false), nil
}

// Destroy deletes the session behind cookies and returns a clearing cookie.
// A rotated token takes its successors down with it.
func (sm *SessionManager) Destroy(ctx context.Context, cookies []*http.Cookie) (*http.Cookie, error) {
	id := sm.tokenFrom(cookies)
	if id == "" {
		return sm.expiredCookie(), nil
	}
	keys := []string{sm.redisKey(id)}
	for hop := 0; hop < maxRotationHops; hop++ {
		stored, err := sm.load(ctx, id)
		if errors.Is(err, errSessionGone) {
			break
		}
		if err != nil {
			return nil, err
		}
		if stored.RotatedTo == "" {
			break
		}
		id = stored.RotatedTo
		keys = append(keys, sm.redisKey(id))
	}
	if err := sm.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: destroy: %w", err)
	}
	return sm.expiredCookie(), nil
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) rotate(ctx context.Context, oldID string, stored sessionPayload) (string, error) {
	v, err, _ := sm.rotations.Do(oldID, func() (interface{}, error) {
		now := sm.now().UTC()
		remaining := sm.expiresAt(stored).Sub(now)
		if remaining <= 0 {
			return "", errSessionGone
		}
		grace := rotationGrace
		if remaining < grace {
			grace = remaining
		}
		newID := sm.generateSessionID()
		fresh := stored
		fresh.StartedAt = sm.startedAt(stored)
		fresh.IssuedAt = now
		fresh.RotatedTo = ""
		tombstone := stored
		tombstone.RotatedTo = newID

		freshJSON, err := json.Marshal(fresh)
		if err != nil {
			return "", err
		}
		tombJSON, err := json.Marshal(tombstone)
		if err != nil {
			return "", err
		}
		_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sm.redisKey(newID), freshJSON, remaining)
			pipe.Set(ctx, sm.redisKey(oldID), tombJSON, grace)
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("session: rotate: %w", err)
		}
		return newID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (sm *SessionManager) load(ctx context.Context, id string) (sessionPayload, error) {
	raw, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sessionPayload{}, errSessionGone
		}
		return sessionPayload{}, fmt.Errorf("session: load: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return sessionPayload{}, errSessionGone
	}
	return stored, nil
}

func (sm *SessionManager) resolve(id string, stored sessionPayload, setCookie bool) Resolution {
	role, err := rbac.ParseRole(stored.Role)
	if err != nil || stored.UserID == "" {
		return sm.cleared()
	}
	res := Resolution{
		Subject: &rbac.Subject{ID: stored.UserID, Role: role},
		LoginID: stored.LoginID,
	}
	if setCookie {
		res.Cookies = []*http.Cookie{sm.cookie(id, sm.expiresAt(stored))}
	}
	return res
}

// startedAt falls back to the issue time for payloads written before sign-in time was recorded.
func (sm *SessionManager) startedAt(stored sessionPayload) time.Time {
	if stored.StartedAt.IsZero() {
		return stored.IssuedAt
	}
	return stored.StartedAt
}

func (sm *SessionManager) expiresAt(stored sessionPayload) time.Time {
	return sm.startedAt(stored).Add(sm.ttl)
}

func (sm *SessionManager) cleared() Resolution {
	return Resolution{Cookies: []*http.Cookie{sm.expiredCookie()}}
}

func (sm *SessionManager) tokenFrom(cookies []*http.Cookie) string {
	for _, c := range cookies {
		if c != nil && c.Name == sm.cookieName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func (sm *SessionManager) cookie(id string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(expires.Sub(sm.now()).Seconds()),
		Expires:  expires,
	}
}

func (sm *SessionManager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
