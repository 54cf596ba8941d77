// Package domain contains core business types and interfaces.
//
// This file defines plan tiers, their quota ceilings, and the pure evaluator
// that decides whether a new endpoint, request, or AI analysis is permitted.
package domain

import "fmt"

// Plan is the subscription tier governing resource ceilings.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Plans lists every plan variant. A Limits table must cover all of them.
var Plans = []Plan{PlanFree, PlanPro}

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanPro
}

// Resource identifies a metered resource.
type Resource string

const (
	ResourceEndpoint Resource = "endpoint"
	ResourceRequest  Resource = "request"
	ResourceAnalysis Resource = "analysis"
)

// Label returns a human-readable name for use in error messages.
func (r Resource) Label() string {
	switch r {
	case ResourceEndpoint:
		return "Endpoint"
	case ResourceRequest:
		return "Monthly request"
	case ResourceAnalysis:
		return "Monthly AI analysis"
	default:
		return string(r)
	}
}

// PlanLimits holds the ceilings for a single plan.
type PlanLimits struct {
	MaxEndpoints          int64
	MaxRequestsPerMonth   int64
	MaxAIAnalysesPerMonth int64
}

// Ceiling returns the ceiling for the given resource.
func (l PlanLimits) Ceiling(r Resource) int64 {
	switch r {
	case ResourceEndpoint:
		return l.MaxEndpoints
	case ResourceRequest:
		return l.MaxRequestsPerMonth
	case ResourceAnalysis:
		return l.MaxAIAnalysesPerMonth
	default:
		return 0
	}
}

// Limits maps every plan to its ceilings.
type Limits map[Plan]PlanLimits

// DefaultLimits returns a fresh copy of the built-in limits table.
func DefaultLimits() Limits {
	return Limits{
		PlanFree: {
			MaxEndpoints:          3,
			MaxRequestsPerMonth:   500,
			MaxAIAnalysesPerMonth: 5,
		},
		PlanPro: {
			MaxEndpoints:          50,
			MaxRequestsPerMonth:   50000,
			MaxAIAnalysesPerMonth: 500,
		},
	}
}

// Validate checks that the table covers every plan, names no unknown plan, and
// holds no negative ceiling.
func (l Limits) Validate() error {
	for p := range l {
		if !p.IsValid() {
			return fmt.Errorf("limits: unknown plan %q", p)
		}
	}
	for _, p := range Plans {
		pl, ok := l[p]
		if !ok {
			return fmt.Errorf("limits: missing entry for plan %q", p)
		}
		if pl.MaxEndpoints < 0 || pl.MaxRequestsPerMonth < 0 || pl.MaxAIAnalysesPerMonth < 0 {
			return fmt.Errorf("limits: negative ceiling for plan %q", p)
		}
	}
	return nil
}

// ProCoversFree reports whether every pro ceiling is at least the free ceiling.
// This is a business expectation, not a structural requirement.
func (l Limits) ProCoversFree() bool {
	free, pro := l[PlanFree], l[PlanPro]
	return pro.MaxEndpoints >= free.MaxEndpoints &&
		pro.MaxRequestsPerMonth >= free.MaxRequestsPerMonth &&
		pro.MaxAIAnalysesPerMonth >= free.MaxAIAnalysesPerMonth
}

// QuotaEvaluator decides whether a plan permits one more unit of a resource.
// It holds a private copy of its limits table and is safe for concurrent use.
type QuotaEvaluator struct {
	limits Limits
}

// NewQuotaEvaluator creates an evaluator over a copy of limits.
func NewQuotaEvaluator(limits Limits) *QuotaEvaluator {
	m := make(Limits, len(limits))
	for k, v := range limits {
		m[k] = v
	}
	return &QuotaEvaluator{limits: m}
}

// Limits returns the ceilings for a plan. Unknown plans get the free ceilings.
func (e *QuotaEvaluator) Limits(plan Plan) PlanLimits {
	if l, ok := e.limits[plan]; ok {
		return l
	}
	return e.limits[PlanFree]
}

// CanCreateEndpoint reports whether a user owning currentCount endpoints may create another.
func (e *QuotaEvaluator) CanCreateEndpoint(currentCount int64, plan Plan) bool {
	return currentCount < e.Limits(plan).MaxEndpoints
}

// CanReceiveRequest reports whether another request may be captured this month.
func (e *QuotaEvaluator) CanReceiveRequest(currentMonthCount int64, plan Plan) bool {
	return currentMonthCount < e.Limits(plan).MaxRequestsPerMonth
}

// CanAnalyze reports whether another AI analysis may run this month.
func (e *QuotaEvaluator) CanAnalyze(currentMonthCount int64, plan Plan) bool {
	return currentMonthCount < e.Limits(plan).MaxAIAnalysesPerMonth
}

// Allows dispatches to the predicate for the given resource.
func (e *QuotaEvaluator) Allows(r Resource, count int64, plan Plan) bool {
	switch r {
	case ResourceEndpoint:
		return e.CanCreateEndpoint(count, plan)
	case ResourceRequest:
		return e.CanReceiveRequest(count, plan)
	case ResourceAnalysis:
		return e.CanAnalyze(count, plan)
	default:
		return false
	}
}

// Remaining returns how many more units the plan allows, never below zero.
func (e *QuotaEvaluator) Remaining(r Resource, count int64, plan Plan) int64 {
	left := e.Limits(plan).Ceiling(r) - count
	if left < 0 {
		return 0
	}
	return left
}

// QuotaUsage represents current usage against a plan's ceilings.
type QuotaUsage struct {
	Plan           Plan  `json:"plan"`
	EndpointsUsed  int64 `json:"endpoints_used"`
	EndpointsLimit int64 `json:"endpoints_limit"`
	RequestsUsed   int64 `json:"requests_used"`
	RequestsLimit  int64 `json:"requests_limit"`
	AnalysesUsed   int64 `json:"analyses_used"`
	AnalysesLimit  int64 `json:"analyses_limit"`

	EndpointsRemaining int64 `json:"endpoints_remaining"`
	RequestsRemaining  int64 `json:"requests_remaining"`
	AnalysesRemaining  int64 `json:"analyses_remaining"`
}
