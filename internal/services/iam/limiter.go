package iam

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Login throttle: a burst of loginBurst attempts per username, refilled at
// one attempt per loginRefill. Bounds credential-stuffing throughput without
// locking anyone out permanently.
const (
	loginBurst  = 10
	loginRefill = 3 * time.Second
)

type loginLimiter struct {
	mu      sync.Mutex
	perUser map[string]*rate.Limiter
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{perUser: make(map[string]*rate.Limiter)}
}

func (l *loginLimiter) allow(username string) bool {
	l.mu.Lock()
	limiter, ok := l.perUser[username]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(loginRefill), loginBurst)
		l.perUser[username] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
