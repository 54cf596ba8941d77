// Package service contains the business logic layer.
//
// This file implements the quota service, which reads a user's subscription and
// current usage from storage and asks the domain evaluator whether one more
// endpoint, captured request, or AI analysis fits within the plan.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/DukeRupert/hookscope/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for checking quota limits.
type QuotaService interface {
	// ResolvePlan returns the effective plan for a user. Users without a
	// subscription record are on the free plan.
	ResolvePlan(ctx context.Context, userID uuid.UUID) (domain.Plan, error)

	// GetUsage returns the current usage and ceilings for a user.
	GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error)

	// CheckEndpointQuota returns nil if the user may create another endpoint,
	// or a QuotaExceeded error if not.
	CheckEndpointQuota(ctx context.Context, userID uuid.UUID) error

	// CheckRequestQuota returns nil if another request may be captured this month.
	CheckRequestQuota(ctx context.Context, userID uuid.UUID) error

	// CheckAnalysisQuota returns nil if another AI analysis may run this month.
	CheckAnalysisQuota(ctx context.Context, userID uuid.UUID) error
}

// QuotaStore is the storage the quota service reads from.
// *repository.Queries satisfies it.
type QuotaStore interface {
	GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (repository.Subscription, error)
	CountEndpointsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountRequestsByUserInRange(ctx context.Context, arg repository.CountRequestsByUserInRangeParams) (int64, error)
	CountAnalysesByUserInRange(ctx context.Context, arg repository.CountAnalysesByUserInRangeParams) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store     QuotaStore
	evaluator *domain.QuotaEvaluator
	logger    *slog.Logger
	now       func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, evaluator *domain.QuotaEvaluator, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:     store,
		evaluator: evaluator,
		logger:    logger,
		now:       time.Now,
	}
}

// ResolvePlan returns the effective plan for a user.
func (s *quotaService) ResolvePlan(ctx context.Context, userID uuid.UUID) (domain.Plan, error) {
	const op = "quota.resolve_plan"

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GetUserPlan(nil), nil
		}
		return domain.PlanFree, domain.Internal(err, op, "failed to load subscription")
	}

	return domain.GetUserPlan(&domain.Subscription{
		UserID: row.UserID,
		Plan:   row.Plan,
		Status: row.Status,
	}), nil
}

// GetUsage returns the current usage and ceilings for a user.
func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	const op = "quota.get_usage"

	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	var endpoints, requests, analyses int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.count(gctx, domain.ResourceEndpoint, userID)
		endpoints = n
		return err
	})
	g.Go(func() error {
		n, err := s.count(gctx, domain.ResourceRequest, userID)
		requests = n
		return err
	})
	g.Go(func() error {
		n, err := s.count(gctx, domain.ResourceAnalysis, userID)
		analyses = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Internal(err, op, "failed to count usage")
	}

	limits := s.evaluator.Limits(plan)
	return &domain.QuotaUsage{
		Plan:           plan,
		EndpointsUsed:  endpoints,
		EndpointsLimit: limits.MaxEndpoints,
		RequestsUsed:   requests,
		RequestsLimit:  limits.MaxRequestsPerMonth,
		AnalysesUsed:   analyses,
		AnalysesLimit:  limits.MaxAIAnalysesPerMonth,

		EndpointsRemaining: s.evaluator.Remaining(domain.ResourceEndpoint, endpoints, plan),
		RequestsRemaining:  s.evaluator.Remaining(domain.ResourceRequest, requests, plan),
		AnalysesRemaining:  s.evaluator.Remaining(domain.ResourceAnalysis, analyses, plan),
	}, nil
}

// CheckEndpointQuota checks if the user may create another endpoint.
func (s *quotaService) CheckEndpointQuota(ctx context.Context, userID uuid.UUID) error {
	return s.check(ctx, "quota.check_endpoint", domain.ResourceEndpoint, userID)
}

// CheckRequestQuota checks if another request may be captured this month.
func (s *quotaService) CheckRequestQuota(ctx context.Context, userID uuid.UUID) error {
	return s.check(ctx, "quota.check_request", domain.ResourceRequest, userID)
}

// CheckAnalysisQuota checks if another AI analysis may run this month.
func (s *quotaService) CheckAnalysisQuota(ctx context.Context, userID uuid.UUID) error {
	return s.check(ctx, "quota.check_analysis", domain.ResourceAnalysis, userID)
}

func (s *quotaService) check(ctx context.Context, op string, resource domain.Resource, userID uuid.UUID) error {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return err
	}

	count, err := s.count(ctx, resource, userID)
	if err != nil {
		return domain.Internal(err, op, "failed to count "+string(resource)+" usage")
	}

	allowed := s.evaluator.Allows(resource, count, plan)
	metrics.QuotaChecked(string(resource), string(plan), allowed)
	if allowed {
		return nil
	}

	limit := s.evaluator.Limits(plan).Ceiling(resource)
	s.logger.Info("Quota exceeded",
		"user_id", userID,
		"resource", resource,
		"plan", plan,
		"used", count,
		"limit", limit,
	)
	return domain.QuotaExceeded(op, resource, count, limit)
}

// count returns the usage the evaluator compares against the ceiling.
// Endpoints are a running total; requests and analyses reset each calendar month.
func (s *quotaService) count(ctx context.Context, resource domain.Resource, userID uuid.UUID) (int64, error) {
	start, end := monthBoundaries(s.now())

	switch resource {
	case domain.ResourceEndpoint:
		return s.store.CountEndpointsByUser(ctx, userID)
	case domain.ResourceRequest:
		return s.store.CountRequestsByUserInRange(ctx, repository.CountRequestsByUserInRangeParams{
			UserID:       userID,
			ReceivedAt:   start,
			ReceivedAt_2: end,
		})
	case domain.ResourceAnalysis:
		return s.store.CountAnalysesByUserInRange(ctx, repository.CountAnalysesByUserInRangeParams{
			UserID:      userID,
			CreatedAt:   start,
			CreatedAt_2: end,
		})
	default:
		return 0, errors.New("unknown resource: " + string(resource))
	}
}

// monthBoundaries returns the start and end of the calendar month containing t, in UTC.
func monthBoundaries(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
