// Package uploads tracks the upload session token of each blog. Media
// uploaded through a blog is held under its token until a post of that blog
// is saved and commits the pending files.
package uploads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session token is kept.
const DefaultTTL = 2 * time.Hour

// Registry maps blog ids to upload session tokens.
type Registry interface {
	// Token returns the session token of blogID, creating one if none exists.
	// Concurrent callers for the same blog receive the same token.
	Token(ctx context.Context, blogID int64) (string, error)
	// Peek returns the current token of blogID without creating one.
	Peek(ctx context.Context, blogID int64) (string, bool, error)
	// Forget drops the token of blogID.
	Forget(ctx context.Context, blogID int64) error
	// Evict drops tokens idle for longer than the TTL and reports how many.
	Evict(ctx context.Context) (int, error)
}

type session struct {
	token    string
	lastUsed time.Time
}

// MemoryRegistry keeps tokens in process memory.
type MemoryRegistry struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]session
}

// NewMemoryRegistry returns an empty registry. A non-positive ttl uses DefaultTTL.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{
		ttl:      ttl,
		now:      time.Now,
		sessions: map[int64]session{},
	}
}

// Token implements Registry.
func (r *MemoryRegistry) Token(_ context.Context, blogID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if current, ok := r.sessions[blogID]; ok && now.Sub(current.lastUsed) <= r.ttl {
		current.lastUsed = now
		r.sessions[blogID] = current
		return current.token, nil
	}
	token := newToken()
	r.sessions[blogID] = session{token: token, lastUsed: now}
	return token, nil
}

// Peek implements Registry.
func (r *MemoryRegistry) Peek(_ context.Context, blogID int64) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[blogID]
	if !ok || r.now().Sub(current.lastUsed) > r.ttl {
		return "", false, nil
	}
	return current.token, true, nil
}

// Forget implements Registry.
func (r *MemoryRegistry) Forget(_ context.Context, blogID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, blogID)
	return nil
}

// Evict implements Registry.
func (r *MemoryRegistry) Evict(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for blogID, current := range r.sessions {
		if now.Sub(current.lastUsed) > r.ttl {
			delete(r.sessions, blogID)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of tracked sessions.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func newToken() string {
	return uuid.NewString()
}
