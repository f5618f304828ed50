package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kratos/kratos/v2/log"
)

// AccessLog writes one line per request.
func AccessLog(logger log.Logger) func(http.Handler) http.Handler {
	helper := log.NewHelper(log.With(logger, "module", "server/access"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				helper.Infow(
					"msg", "http request",
					"method", r.Method,
					"host", r.Host,
					"path", r.URL.Path,
					"status", ww.Status(),
					"location", ww.Header().Get("Location"),
					"duration", time.Since(start),
					"remote_addr", r.RemoteAddr,
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// FailSafe turns a panic anywhere below it into a 302 to the default fallback.
// If the handler already wrote its status the response is left alone.
func FailSafe(fallbackURL string, logger log.Logger) func(http.Handler) http.Handler {
	helper := log.NewHelper(log.With(logger, "module", "server/failsafe"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(middleware.WrapResponseWriter)
			if !ok {
				ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				helper.Errorw("msg", "handler panic, using default fallback",
					"path", r.URL.Path,
					"error", fmt.Sprint(rec),
					"request_id", middleware.GetReqID(r.Context()),
				)
				if ww.Status() != 0 {
					return
				}
				ww.Header().Set("Location", fallbackURL)
				ww.Header().Set("Cache-Control", "no-store")
				ww.WriteHeader(http.StatusFound)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
