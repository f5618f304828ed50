package biz

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"
	"link-runtime/internal/domain/valueobject"

	"github.com/go-kratos/kratos/v2/log"
)

// Pipeline stages, reported on every outcome and fallback log line.
const (
	StageNormalize = "normalize"
	StageLookup    = "lookup"
	StagePolicy    = "policy"
	StageSignature = "signature"
	StageRouting   = "routing"
	StageBuild     = "build"
	StageEmit      = "emit"
	StageDone      = "done"
)

// Outcome reasons. Policy denials use ReasonInactive and ReasonExpired.
const (
	ReasonOK               = ReasonAllowed
	ReasonNotFound         = "not_found"
	ReasonSignatureInvalid = "signature_invalid"
	ReasonSecretUnavail    = "secret_unavailable"
	ReasonMalformedInput   = "malformed_input"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonInternalError    = "internal_error"
)

// RedirectRequest is the transport-independent view of one redirect request.
type RedirectRequest struct {
	Host      string
	Slug      string
	Query     url.Values
	ClientIP  string
	UserAgent string
	Referer   string
	// Country is the CDN-provided country signal, if any.
	Country   string
	RequestID string
	// SkipEvent suppresses click emission, e.g. for HEAD probes.
	SkipEvent bool
}

// Outcome is the terminal result of the pipeline. Location is always set.
type Outcome struct {
	Location string
	Reason   string
	Stage    string
	ClickID  string
	Route    Route
	Emitted  bool
}

// RedirectUsecase runs the redirect pipeline. It never returns an error: every
// failure degrades to a fallback location.
type RedirectUsecase struct {
	cfg        *conf.Redirect
	repo       RecordRepo
	policy     *PolicyEvaluator
	signatures *SignatureValidator
	bots       *BotClassifier
	routing    *RoutingEngine
	urls       *URLBuilder
	events     *ClickEventBuilder
	sink       ClickSink
	countries  CountryResolver
	log        *log.Helper
	now        func() time.Time
}

func NewRedirectUsecase(
	c *conf.Redirect,
	repo RecordRepo,
	policy *PolicyEvaluator,
	signatures *SignatureValidator,
	bots *BotClassifier,
	routing *RoutingEngine,
	urls *URLBuilder,
	events *ClickEventBuilder,
	sink ClickSink,
	countries CountryResolver,
	logger log.Logger,
) *RedirectUsecase {
	return &RedirectUsecase{
		cfg:        c,
		repo:       repo,
		policy:     policy,
		signatures: signatures,
		bots:       bots,
		routing:    routing,
		urls:       urls,
		events:     events,
		sink:       sink,
		countries:  countries,
		log:        log.NewHelper(logger),
		now:        time.Now,
	}
}

// DefaultFallback returns the process-wide fallback location.
func (uc *RedirectUsecase) DefaultFallback() string {
	return uc.cfg.DefaultFallbackURL
}

// Resolve runs lookup, policy, signature, classification, routing, URL building
// and emission in that order and returns where the client should be sent.
func (uc *RedirectUsecase) Resolve(ctx context.Context, req *RedirectRequest) (out Outcome) {
	start := uc.now()
	stage := StageNormalize
	var host, slug string

	defer func() {
		if r := recover(); r != nil {
			uc.log.WithContext(ctx).Errorw("msg", "redirect pipeline panic, using default fallback",
				"domain", host, "slug", slug, "stage", stage, "reason", ReasonInternalError,
				"error", fmt.Sprint(r))
			out = Outcome{Location: uc.DefaultFallback(), Reason: ReasonInternalError, Stage: stage}
		}
	}()

	h, err := valueobject.NewHost(req.Host)
	if err != nil {
		return uc.fallback(ctx, "", "", stage, ReasonMalformedInput, uc.DefaultFallback(), err)
	}
	s, err := valueobject.NewSlug(req.Slug)
	if err != nil {
		return uc.fallback(ctx, h.String(), req.Slug, stage, ReasonMalformedInput, uc.DefaultFallback(), err)
	}
	host, slug = h.String(), s.String()

	stage = StageLookup
	rec, err := uc.repo.Get(ctx, host, slug)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound) || (err == nil && rec == nil):
		return uc.fallback(ctx, host, slug, stage, ReasonNotFound, uc.DefaultFallback(), nil)
	case err != nil:
		return uc.fallback(ctx, host, slug, stage, ReasonStoreUnavailable, uc.DefaultFallback(), err)
	}

	stage = StagePolicy
	if d := uc.policy.Evaluate(rec, start); !d.Allowed {
		return uc.fallback(ctx, host, slug, stage, d.Reason, uc.recordFallback(rec), nil)
	}

	stage = StageSignature
	if err := uc.signatures.Validate(ctx, rec, slug,
		req.Query.Get(uc.cfg.SignatureParam), req.Query.Get(uc.cfg.TimestampParam), start); err != nil {
		reason := ReasonSignatureInvalid
		if errors.Is(err, domain.ErrSecretUnavailable) {
			reason = ReasonSecretUnavail
		}
		return uc.fallback(ctx, host, slug, stage, reason, uc.recordFallback(rec), err)
	}

	cctx := &domain.ClickContext{
		Domain:    host,
		Slug:      slug,
		ClientIP:  req.ClientIP,
		UserAgent: req.UserAgent,
		Referer:   req.Referer,
		Country:   req.Country,
		Query:     req.Query,
		RequestID: req.RequestID,
		Now:       start,
	}
	if cctx.Country == "" && uc.countries != nil {
		cctx.Country = uc.countries.ResolveCountry(req.ClientIP)
	}
	bot := uc.bots.Classify(req.UserAgent, req.ClientIP)
	sessionID := domain.NewClickSessionID()

	stage = StageRouting
	route := uc.routing.Resolve(rec, sessionID, cctx)

	stage = StageBuild
	final, err := uc.urls.Build(rec, route, sessionID, cctx)
	if err != nil {
		return uc.fallback(ctx, host, slug, stage, ReasonInternalError, uc.DefaultFallback(), err)
	}

	out = Outcome{Location: final, Reason: ReasonOK, Stage: StageDone, ClickID: sessionID, Route: route}

	stage = StageEmit
	if !req.SkipEvent && uc.sink != nil {
		e := uc.events.Build(rec, sessionID, cctx, final, route, bot, uc.now().Sub(start))
		out.Emitted = uc.sink.Submit(e)
	}
	uc.log.WithContext(ctx).Debugw("msg", "redirect resolved",
		"domain", host, "slug", slug, "route", route.Reason, "variant", route.Variant,
		"is_bot", bot.IsBot, "emitted", out.Emitted)
	return out
}

// recordFallback returns the record's fallback URL when it is a usable
// absolute http(s) URL, and the default fallback otherwise.
func (uc *RedirectUsecase) recordFallback(rec *domain.RuntimeRecord) string {
	if rec.FallbackURL == "" {
		return uc.DefaultFallback()
	}
	if _, err := valueobject.ParseDestination(rec.FallbackURL); err != nil {
		return uc.DefaultFallback()
	}
	return rec.FallbackURL
}

func (uc *RedirectUsecase) fallback(ctx context.Context, host, slug, stage, reason, location string, err error) Outcome {
	kv := []any{"msg", "redirect fallback", "domain", host, "slug", slug, "stage", stage, "reason", reason}
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	l := uc.log.WithContext(ctx)
	switch reason {
	case ReasonNotFound, ReasonMalformedInput:
		l.Debugw(kv...)
	case ReasonInactive, ReasonExpired, ReasonSignatureInvalid:
		l.Infow(kv...)
	case ReasonStoreUnavailable, ReasonSecretUnavail:
		l.Warnw(kv...)
	default:
		l.Errorw(kv...)
	}
	return Outcome{Location: location, Reason: reason, Stage: stage}
}
