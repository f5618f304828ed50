package service

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kratos/kratos/v2/log"
)

const robotsBody = "User-agent: *\nDisallow: /\n"

// RedirectService is the HTTP face of the redirect pipeline.
type RedirectService struct {
	uc             *biz.RedirectUsecase
	countryHeaders []string
	log            *log.Helper
}

func NewRedirectService(c *conf.Redirect, uc *biz.RedirectUsecase, logger log.Logger) *RedirectService {
	return &RedirectService{
		uc:             uc,
		countryHeaders: c.CountryHeaders,
		log:            log.NewHelper(log.With(logger, "module", "service/redirect")),
	}
}

// Redirect handles GET and HEAD /{slug}. Every request ends in a 302; HEAD
// requests never emit a click event.
func (s *RedirectService) Redirect(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, chi.URLParam(r, "slug"))
}

// Fallback handles paths that cannot be a slug (the root, nested paths).
// They still go through the pipeline so the response is a 302.
func (s *RedirectService) Fallback(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, strings.Trim(r.URL.Path, "/"))
}

func (s *RedirectService) resolve(w http.ResponseWriter, r *http.Request, slug string) {
	out := s.uc.Resolve(r.Context(), &biz.RedirectRequest{
		Host:      r.Host,
		Slug:      slug,
		Query:     r.URL.Query(),
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Country:   s.country(r),
		RequestID: middleware.GetReqID(r.Context()),
		SkipEvent: r.Method == http.MethodHead,
	})

	location := out.Location
	if location == "" {
		location = s.uc.DefaultFallback()
	}
	h := w.Header()
	h.Set("Location", location)
	h.Set("Cache-Control", "no-store")
	h.Set("X-Redirect-Reason", out.Reason)
	w.WriteHeader(http.StatusFound)
}

// country returns the first non-empty configured CDN country header.
func (s *RedirectService) country(r *http.Request) string {
	for _, name := range s.countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// clientIP returns the request's remote address without port. RealIP has
// already replaced RemoteAddr when a proxy header was present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health handles GET /health.
func (s *RedirectService) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"}); err != nil {
		s.log.Warnw("msg", "failed to write health response", "error", err)
	}
}

// Robots handles GET /robots.txt.
func (s *RedirectService) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(robotsBody))
}

// Favicon handles GET /favicon.ico without a store lookup.
func (s *RedirectService) Favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
