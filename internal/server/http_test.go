package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"
	"link-runtime/internal/domain"
	"link-runtime/internal/service"
	"link-runtime/internal/testutil"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fallbackURL = "https://fallback.example.com/"

func newTestRouter(repo biz.RecordRepo, sink biz.ClickSink) http.Handler {
	c := &conf.Redirect{
		DefaultFallbackURL: fallbackURL,
		CountryHeaders:     []string{"CloudFront-Viewer-Country"},
		SignatureParam:     "sig",
		TimestampParam:     "ts",
		ClockSkew:          conf.Seconds(300),
	}
	uc := biz.NewRedirectUsecase(
		c,
		repo,
		biz.NewPolicyEvaluator(),
		biz.NewSignatureValidator(c, nil),
		biz.NewBotClassifier(),
		biz.NewRoutingEngine(log.DefaultLogger),
		biz.NewURLBuilder(),
		biz.NewClickEventBuilder(&conf.Emitter{HashKey: "k"}, nil, nil),
		sink,
		nil,
		log.DefaultLogger,
	)
	return NewRouter(c, service.NewRedirectService(c, uc, log.DefaultLogger), log.DefaultLogger)
}

func TestRouter_RedirectUsesRealIP(t *testing.T) {
	// Arrange
	sink := &testutil.ClickRecorder{}
	h := newTestRouter(testutil.NewRecordRepo(&domain.RuntimeRecord{
		Domain:         "go.example.com",
		Slug:           "DOCS",
		DestinationURL: "https://docs.example.com/",
		Active:         true,
	}), sink)
	req := httptest.NewRequest(http.MethodGet, "http://go.example.com/docs", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	req.Header.Set("CloudFront-Viewer-Country", "us")
	rr := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rr, req)

	// Assert
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://docs.example.com/", rr.Header().Get("Location"))
	events := sink.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].IPHash)
	assert.NotEmpty(t, events[0].RequestID)
	assert.Equal(t, "US", events[0].Country)
}

func TestRouter_ReservedPaths(t *testing.T) {
	repo := testutil.NewRecordRepo()
	h := newTestRouter(repo, &testutil.ClickRecorder{})

	for path, want := range map[string]int{
		"/health":      http.StatusOK,
		"/robots.txt":  http.StatusOK,
		"/favicon.ico": http.StatusNoContent,
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://go.example.com"+path, nil))
		assert.Equal(t, want, rr.Code, path)
	}
	assert.Zero(t, repo.Calls)
}

func TestFailSafe_PanicBecomesFallbackRedirect(t *testing.T) {
	// Arrange
	h := FailSafe(fallbackURL, log.DefaultLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	// Assert
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, fallbackURL, rr.Header().Get("Location"))
}

func TestFailSafe_KeepsWrittenResponse(t *testing.T) {
	// Arrange
	h := FailSafe(fallbackURL, log.DefaultLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
		panic("late")
	}))
	rr := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	// Assert
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get("Location"))
}

func TestNewHTTPServer(t *testing.T) {
	srv := NewHTTPServer(&conf.Server{HTTP: conf.HTTP{Addr: "127.0.0.1:0", Timeout: conf.Seconds(1)}}, http.NotFoundHandler())
	assert.NotNil(t, srv)
}
