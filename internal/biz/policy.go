package biz

import (
	"time"

	"link-runtime/internal/domain"
)

// Policy decision reasons.
const (
	ReasonAllowed  = "ok"
	ReasonInactive = "inactive"
	ReasonExpired  = "expired"
)

// Decision is the outcome of policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// PolicyEvaluator decides whether a record currently permits a redirect.
//
// max_clicks is advisory: it is carried on the click event for the analytics
// path and never enforced here, so evaluation needs no store round trip.
type PolicyEvaluator struct{}

func NewPolicyEvaluator() *PolicyEvaluator {
	return &PolicyEvaluator{}
}

// Evaluate never fails; a denial always carries a reason code.
func (p *PolicyEvaluator) Evaluate(rec *domain.RuntimeRecord, now time.Time) Decision {
	if !rec.Active {
		return Decision{Reason: ReasonInactive}
	}
	if rec.IsExpired(now) {
		return Decision{Reason: ReasonExpired}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}
