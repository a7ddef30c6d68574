package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestClientAddr_PrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5")
	r.RemoteAddr = "10.0.0.1:54321"

	assert.Equal(t, "203.0.113.5", clientAddr(r))
}

func TestClientAddr_FallsBackToRemoteAddrHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:54321"

	assert.Equal(t, "10.0.0.1", clientAddr(r))
}

func TestClientAddr_FallsBackToRawRemoteAddrWhenUnparsable(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "not-a-host-port"

	assert.Equal(t, "not-a-host-port", clientAddr(r))
}

func TestLimiterSet_ScopesByAddressAndCategory(t *testing.T) {
	s := newLimiterSet()

	a := s.get("1.2.3.4", categoryAPI)
	b := s.get("1.2.3.4", categoryAPI)
	assert.Same(t, a, b, "same address+category should reuse one limiter")

	c := s.get("1.2.3.4", categoryDeploy)
	assert.NotSame(t, a, c, "different category should get its own limiter")

	d := s.get("5.6.7.8", categoryAPI)
	assert.NotSame(t, a, d, "different address should get its own limiter")
}

func TestRateLimit_BlocksAfterQuotaExhausted(t *testing.T) {
	s := &Server{logger: zerolog.Nop(), limiters: newLimiterSet()}

	handler := s.rateLimit(categoryUpload)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limit := quotas[categoryUpload].limit
	var lastCode int
	for i := 0; i < limit+1; i++ {
		r := httptest.NewRequest(http.MethodPost, "/upload", nil)
		r.RemoteAddr = "9.9.9.9:1111"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimit_SetsRateLimitHeaders(t *testing.T) {
	s := &Server{logger: zerolog.Nop(), limiters: newLimiterSet()}
	handler := s.rateLimit(categoryAPI)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api", nil)
	r.RemoteAddr = "1.1.1.1:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}
