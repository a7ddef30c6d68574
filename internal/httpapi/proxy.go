package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-paas/control-plane/internal/apperr"
	"github.com/corvus-paas/control-plane/internal/models"
)

// hopByHopResponseHeaders are stripped from the upstream response before it
// reaches the client, per spec.md §4.7 — the proxy terminates its own
// connection to the client, so these headers describe the wrong hop.
var hopByHopResponseHeaders = []string{"Content-Encoding", "Content-Length", "Transfer-Encoding", "Connection"}

// handleProxy implements `/deploy/{id}/{path...}`: a synchronous reverse
// proxy to the deployment's published container port. Redirects are never
// followed (httputil.ReverseProxy passes the upstream response through
// as-is, matching allow_redirects=false) and the upstream call is bounded
// to 30 seconds.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.NotFound, "deployment not found", err))
		return
	}
	if d.Status != models.StatusActive || d.HostPort == nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "deployment is not active", nil))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/deploy/"+id)
	if path == "" {
		path = "/"
	}

	target := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", s.eng.EngineHost(), *d.HostPort),
	}

	proxy := &httputil.ReverseProxy{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
		},
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.URL.Path = path
			req.Host = target.Host
			req.Header.Del("Host")
			req.Header.Del("Connection")
		},
		ModifyResponse: func(resp *http.Response) error {
			for _, h := range hopByHopResponseHeaders {
				resp.Header.Del(h)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, s.logger, apperr.New(apperr.RunFailed, "upstream container unreachable", err))
		},
	}

	proxy.ServeHTTP(w, r)
}
