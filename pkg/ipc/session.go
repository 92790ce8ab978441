package ipc

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionTokenTTL is how long a Hello-issued token remains valid.
const sessionTokenTTL = time.Hour

// defaultRateLimit is the default sliding-window request ceiling.
const defaultRateLimit = 50

// rateWindow is the sliding window duration for the request limiter.
const rateWindow = time.Minute

// session tracks per-connection authentication and rate-limit state.
type session struct {
	token      string
	expiresAt  time.Time
	privileged bool

	mu           sync.Mutex
	requestTimes []time.Time
	rateLimit    int
}

func newSession(privileged bool, rateLimit int) *session {
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	return &session{
		token:      uuid.Must(uuid.NewV7()).String(),
		expiresAt:  time.Now().Add(sessionTokenTTL),
		privileged: privileged,
		rateLimit:  rateLimit,
	}
}

// valid reports whether token matches this session and it has not
// expired.
func (s *session) valid(token string) bool {
	return token == s.token && time.Now().Before(s.expiresAt)
}

// allow records a request attempt and reports whether it falls within the
// sliding-window rate limit.
func (s *session) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rateWindow)

	kept := s.requestTimes[:0]
	for _, t := range s.requestTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.requestTimes = kept

	if len(s.requestTimes) >= s.rateLimit {
		return false
	}
	s.requestTimes = append(s.requestTimes, now)
	return true
}
