package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvus-paas/control-plane/internal/apperr"
)

// category is a rate-limit bucket name, per spec.md §4.7's per-client,
// per-category quotas.
type category string

const (
	categoryDeploy category = "deploy"
	categoryUpload category = "upload"
	categoryAPI    category = "api"
)

// quota is (requests, per) converted to a token bucket: burst equals the
// full quota, refilled continuously over the window.
var quotas = map[category]struct {
	limit  int
	window time.Duration
}{
	categoryDeploy: {limit: 10, window: time.Hour},
	categoryUpload: {limit: 5, window: time.Hour},
	categoryAPI:    {limit: 100, window: time.Minute},
}

// limiterKey scopes a bucket to one client address within one category.
type limiterKey struct {
	addr string
	cat  category
}

// limiterSet lazily creates and caches one token bucket per (address,
// category) pair, matching spec.md's "per client address and category"
// quota scoping. golang.org/x/time/rate is the idiomatic Go rate limiter;
// no ecosystem repo in the retrieval pack ships a dedicated rate-limiting
// library (see DESIGN.md).
type limiterSet struct {
	mu       sync.Mutex
	limiters map[limiterKey]*rate.Limiter
}

func newLimiterSet() *limiterSet {
	return &limiterSet{limiters: make(map[limiterKey]*rate.Limiter)}
}

func (s *limiterSet) get(addr string, cat category) *rate.Limiter {
	key := limiterKey{addr: addr, cat: cat}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[key]; ok {
		return l
	}

	q := quotas[cat]
	every := rate.Every(q.window / time.Duration(q.limit))
	l := rate.NewLimiter(every, q.limit)
	s.limiters[key] = l
	return l
}

// rateLimit returns middleware enforcing cat's quota per client address. On
// refusal it writes 429 with remaining-quota headers, per spec.md §4.7.
func (s *Server) rateLimit(cat category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)
			limiter := s.limiters.get(addr, cat)

			if !limiter.Allow() {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quotas[cat].limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, s.logger, apperr.New(apperr.RateLimited, "rate limit exceeded for category "+string(cat), nil))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quotas[cat].limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
