package server

import (
	nethttp "net/http"

	"link-runtime/internal/conf"
	"link-runtime/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewRouter builds the chi router serving every public path.
func NewRouter(rc *conf.Redirect, svc *service.RedirectService, logger log.Logger) nethttp.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(FailSafe(rc.DefaultFallbackURL, logger))

	// Reserved paths never reach the record store.
	r.Get("/health", svc.Health)
	r.Get("/robots.txt", svc.Robots)
	r.Get("/favicon.ico", svc.Favicon)

	r.Get("/{slug}", svc.Redirect)
	r.Head("/{slug}", svc.Redirect)
	r.NotFound(svc.Fallback)

	return r
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, router nethttp.Handler) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout.Duration > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout.Duration))
	}
	srv := http.NewServer(opts...)
	srv.HandlePrefix("/", router)
	return srv
}
