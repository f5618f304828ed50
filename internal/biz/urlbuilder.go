package biz

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"link-runtime/internal/domain"
	"link-runtime/internal/domain/valueobject"

	"github.com/samber/lo"
)

// URLBuilder merges static, dynamic and forwarded parameters onto a destination.
type URLBuilder struct{}

func NewURLBuilder() *URLBuilder {
	return &URLBuilder{}
}

// Build returns the final redirect URL for a routed destination.
//
// Precedence, later wins: parameters already on the destination, the record's
// resolved parameters, engine-computed dynamic parameters, then allow-listed
// parameters forwarded from the incoming request. Only the query component is
// rewritten and untouched pairs keep their original encoding.
func (b *URLBuilder) Build(rec *domain.RuntimeRecord, route Route, sessionID string, cctx *domain.ClickContext) (string, error) {
	dest, err := valueobject.ParseDestination(route.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidDestination, route.URL)
	}
	if !rec.AppendQueryParams {
		return route.URL, nil
	}

	q := parseOrderedQuery(dest.RawQuery)

	keys := lo.Keys(rec.ResolvedParams)
	sort.Strings(keys)
	for _, k := range keys {
		q.set(k, rec.ResolvedParams[k])
	}

	for _, p := range b.DynamicParams(rec, route, sessionID, cctx) {
		q.set(p[0], p[1])
	}

	for _, name := range rec.ForwardedParamNames() {
		if vals, ok := cctx.Query[name]; ok && len(vals) > 0 {
			q.set(name, vals...)
		}
	}

	dest.RawQuery = q.encode()
	return dest.String(), nil
}

// DynamicParams returns the engine-computed parameters the record allows, in a
// stable order.
func (b *URLBuilder) DynamicParams(rec *domain.RuntimeRecord, route Route, sessionID string, cctx *domain.ClickContext) orderedParams {
	var out orderedParams
	if rec.Allows(domain.ParamClickID) {
		out = append(out, [2]string{domain.ParamClickID, sessionID})
	}
	if rec.Allows(domain.ParamGeo) && cctx.Country != "" {
		out = append(out, [2]string{domain.ParamGeo, cctx.Country})
	}
	if rec.Allows(domain.ParamClickTS) {
		out = append(out, [2]string{domain.ParamClickTS, clickTimestamp(cctx.Now)})
	}
	if rec.Allows(domain.ParamABVariant) && route.Variant != "" {
		out = append(out, [2]string{domain.ParamABVariant, route.Variant})
	}
	return out
}

// orderedParams is a list of key/value pairs in insertion order.
type orderedParams [][2]string

// ForwardedParams returns the allow-listed parameters present on the incoming request.
func ForwardedParams(rec *domain.RuntimeRecord, query url.Values) map[string]string {
	out := map[string]string{}
	for _, name := range rec.ForwardedParamNames() {
		if v, ok := query[name]; ok && len(v) > 0 {
			out[name] = v[0]
		}
	}
	return out
}

type queryEntry struct {
	key   string
	pairs []string
}

// orderedQuery keeps query pairs in first-seen order and in their raw encoding.
type orderedQuery struct {
	entries []*queryEntry
	index   map[string]*queryEntry
}

func parseOrderedQuery(raw string) *orderedQuery {
	q := &orderedQuery{index: map[string]*queryEntry{}}
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		rawKey, _, _ := strings.Cut(seg, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		e, ok := q.index[key]
		if !ok {
			e = &queryEntry{key: key}
			q.index[key] = e
			q.entries = append(q.entries, e)
		}
		e.pairs = append(e.pairs, seg)
	}
	return q
}

// set replaces every value of key, keeping its position when already present.
func (q *orderedQuery) set(key string, values ...string) {
	pairs := make([]string, 0, len(values))
	for _, v := range values {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(v))
	}
	if e, ok := q.index[key]; ok {
		e.pairs = pairs
		return
	}
	e := &queryEntry{key: key, pairs: pairs}
	q.index[key] = e
	q.entries = append(q.entries, e)
}

func (q *orderedQuery) encode() string {
	var parts []string
	for _, e := range q.entries {
		parts = append(parts, e.pairs...)
	}
	return strings.Join(parts, "&")
}
