// Package httpapi is the Control API: a thin chi-routed HTTP layer over the
// Deployment Store, Log Bus, Job Queue, and Container Engine Driver, per
// spec.md §4.7.
package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/corvus-paas/control-plane/internal/engine"
	"github.com/corvus-paas/control-plane/internal/executor"
	"github.com/corvus-paas/control-plane/internal/logbus"
	"github.com/corvus-paas/control-plane/internal/metrics"
	"github.com/corvus-paas/control-plane/internal/queue"
	"github.com/corvus-paas/control-plane/internal/store"
)

// Options configures the Control API's ambient knobs — everything that is
// not itself a dependency object.
type Options struct {
	CORSOrigins   []string
	BaseDomain    string
	PublicIP      string
	ServeRoot     string
	JWTSigningKey string
}

// Server holds every dependency the Control API's handlers need. One Server
// is constructed per control-plane process.
type Server struct {
	st      store.Store
	bus     *logbus.Bus
	q       *queue.Queue
	eng     *engine.Engine
	ex      *executor.Executor
	metrics *metrics.Collector
	logger  zerolog.Logger

	opts          Options
	jwtSigningKey string
	limiters      *limiterSet
}

// New constructs a Server. Routes() then builds the chi handler.
func New(st store.Store, bus *logbus.Bus, q *queue.Queue, eng *engine.Engine, ex *executor.Executor, mc *metrics.Collector, logger zerolog.Logger, opts Options) *Server {
	if opts.JWTSigningKey == "" {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		opts.JWTSigningKey = hex.EncodeToString(buf)
		logger.Warn().Msg("jwt_signing_key is unset; using an ephemeral key, so session tokens do not survive a restart")
	}
	return &Server{
		st:            st,
		bus:           bus,
		q:             q,
		eng:           eng,
		ex:            ex,
		metrics:       mc,
		logger:        logger,
		opts:          opts,
		jwtSigningKey: opts.JWTSigningKey,
		limiters:      newLimiterSet(),
	}
}

// Routes constructs the chi multiplexer, attaches middleware, and registers
// every endpoint spec.md §4.7/§6 names. It returns a plain http.Handler so
// cmd/control-plane has no chi import of its own.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/detect-project", func(r chi.Router) {
		r.With(s.rateLimit(categoryAPI)).Post("/", s.handleDetectProject)
	})
	r.Route("/detect-github", func(r chi.Router) {
		r.With(s.rateLimit(categoryAPI)).Post("/", s.handleDetectGithub)
	})

	r.With(s.rateLimit(categoryDeploy)).Post("/deploy-stream", s.handleDeployStream)
	r.With(s.rateLimit(categoryUpload)).Post("/deploy-local", s.handleDeployLocal)

	r.Route("/deployments", func(r chi.Router) {
		r.Use(s.rateLimit(categoryAPI))
		r.Get("/", s.handleListDeployments)
		r.Get("/{id}", s.handleGetDeployment)
		r.Delete("/{id}", s.handleDeleteDeployment)
		r.Get("/{id}/stream", s.handleStreamLogs)
		r.Get("/{id}/logs", s.handleLogs)
		r.Post("/{id}/restart", s.handleRestart)
		r.Get("/{id}/stats", s.handleStats)
		r.Get("/{id}/metrics", s.handleMetrics)
		r.Post("/{id}/rollback", s.handleRollback)
		r.Put("/{id}/env", s.handleUpdateEnv)
	})

	r.With(s.rateLimit(categoryAPI)).HandleFunc("/deploy/{id}/*", s.handleProxy)

	// GitHub OAuth session family: listed in spec.md §6 as an external
	// collaborator, out of core scope. Implemented only as far as the
	// session-token middleware itself; the OAuth exchange is not wired.
	r.Route("/login", func(r chi.Router) {
		r.Post("/github", s.handleLoginGithubStub)
	})
	r.Post("/logout/github", s.handleLogoutGithubStub)
	r.Get("/check-github-session", s.handleCheckGithubSessionStub)
	r.With(s.requireSession).Get("/user/repos", s.handleUserReposStub)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
