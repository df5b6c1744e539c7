// Package ratelimit limits requests per client in fixed one-minute windows.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const windowLength = time.Minute

// Config tunes a Limiter. Zero fields take the DefaultConfig values.
type Config struct {
	RequestsPerMinute int
	// SweepInterval is how often idle clients are forgotten.
	SweepInterval time.Duration
	// IdleAfter is how long a client must be quiet before it is forgotten.
	IdleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		SweepInterval:     5 * time.Minute,
		IdleAfter:         10 * time.Minute,
	}
}

// window counts one client's requests since start.
type window struct {
	start time.Time
	seen  time.Time
	count int
}

// Limiter allows each client a fixed number of requests per minute.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	rejected atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a background sweep of idle clients; Stop ends it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}

	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow records a request from client and reports whether it fits in the
// current window. Rejected requests do not extend the window.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[client]
	if w == nil || now.Sub(w.start) >= windowLength {
		l.windows[client] = &window{start: now, seen: now, count: 1}
		return true
	}
	w.seen = now
	if w.count >= l.cfg.RequestsPerMinute {
		l.rejected.Add(1)
		return false
	}
	w.count++
	return true
}

// RetryAfter returns whole seconds until client's window resets, or 0.
func (l *Limiter) RetryAfter(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[client]
	if w == nil {
		return 0
	}
	left := windowLength - l.now().Sub(w.start)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep forgets clients idle for longer than IdleAfter and returns how many
// were dropped.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleAfter)
	n := 0
	for client, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, client)
			n++
		}
	}
	return n
}

// Clients returns how many clients are being tracked.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

type Stats struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) Stats() Stats {
	return Stats{Rejected: l.rejected.Load(), Clients: l.Clients()}
}

// MutatingOnly selects every method except GET, HEAD and OPTIONS.
func MutatingOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Middleware counts the requests selected by applies (all of them when nil)
// against the client named by clientOf. Over-limit requests get a
// Retry-After header and are answered by onLimit, or a plain 429.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, applies func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	if clientOf == nil {
		clientOf = ClientIP
	}
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies == nil || applies(r) {
				client := clientOf(r)
				if !l.Allow(client) {
					w.Header().Set("Retry-After", strconv.Itoa(max(l.RetryAfter(client), 1)))
					onLimit(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of RemoteAddr. Servers behind a proxy
// should pass a resolver that understands forwarding headers instead.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
