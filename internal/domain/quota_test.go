package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEvaluator_StrictLessThan(t *testing.T) {
	limits := DefaultLimits()
	e := NewQuotaEvaluator(limits)

	for _, plan := range Plans {
		pl := limits[plan]
		for _, c := range []int64{-1, 0, 1, pl.MaxEndpoints - 1, pl.MaxEndpoints, pl.MaxEndpoints + 1} {
			assert.Equal(t, c < pl.MaxEndpoints, e.CanCreateEndpoint(c, plan), "endpoints plan=%s count=%d", plan, c)
		}
		for _, c := range []int64{0, pl.MaxRequestsPerMonth - 1, pl.MaxRequestsPerMonth, pl.MaxRequestsPerMonth + 10} {
			assert.Equal(t, c < pl.MaxRequestsPerMonth, e.CanReceiveRequest(c, plan), "requests plan=%s count=%d", plan, c)
		}
		for _, c := range []int64{0, pl.MaxAIAnalysesPerMonth - 1, pl.MaxAIAnalysesPerMonth, pl.MaxAIAnalysesPerMonth + 1} {
			assert.Equal(t, c < pl.MaxAIAnalysesPerMonth, e.CanAnalyze(c, plan), "analyses plan=%s count=%d", plan, c)
		}
	}
}

func TestQuotaEvaluator_AtCeilingIsRejected(t *testing.T) {
	limits := DefaultLimits()
	e := NewQuotaEvaluator(limits)

	for _, plan := range Plans {
		assert.False(t, e.CanCreateEndpoint(limits[plan].MaxEndpoints, plan), "plan %s", plan)
		assert.False(t, e.CanReceiveRequest(limits[plan].MaxRequestsPerMonth, plan), "plan %s", plan)
		assert.False(t, e.CanAnalyze(limits[plan].MaxAIAnalysesPerMonth, plan), "plan %s", plan)
	}
}

func TestQuotaEvaluator_ZeroCeiling(t *testing.T) {
	e := NewQuotaEvaluator(Limits{
		PlanFree: {},
		PlanPro:  {MaxEndpoints: 1, MaxRequestsPerMonth: 1, MaxAIAnalysesPerMonth: 1},
	})

	assert.False(t, e.CanCreateEndpoint(0, PlanFree))
	assert.False(t, e.CanReceiveRequest(0, PlanFree))
	assert.False(t, e.CanAnalyze(0, PlanFree))
	assert.True(t, e.CanAnalyze(0, PlanPro))
}

func TestQuotaEvaluator_UnknownPlanUsesFree(t *testing.T) {
	e := NewQuotaEvaluator(DefaultLimits())

	assert.Equal(t, e.Limits(PlanFree), e.Limits(Plan("enterprise")))
	assert.False(t, e.CanCreateEndpoint(3, Plan("enterprise")))
}

func TestQuotaEvaluator_CopiesLimits(t *testing.T) {
	limits := DefaultLimits()
	e := NewQuotaEvaluator(limits)

	limits[PlanFree] = PlanLimits{MaxEndpoints: 1000}

	assert.Equal(t, int64(3), e.Limits(PlanFree).MaxEndpoints)
}

func TestQuotaEvaluator_AlternateTiers(t *testing.T) {
	e := NewQuotaEvaluator(Limits{
		PlanFree: {MaxEndpoints: 1, MaxRequestsPerMonth: 10, MaxAIAnalysesPerMonth: 0},
		PlanPro:  {MaxEndpoints: 2, MaxRequestsPerMonth: 20, MaxAIAnalysesPerMonth: 2},
	})

	assert.True(t, e.CanCreateEndpoint(0, PlanFree))
	assert.False(t, e.CanCreateEndpoint(1, PlanFree))
	assert.True(t, e.CanCreateEndpoint(1, PlanPro))
	assert.True(t, e.CanReceiveRequest(19, PlanPro))
	assert.False(t, e.CanReceiveRequest(20, PlanPro))
}

func TestQuotaEvaluator_Allows(t *testing.T) {
	e := NewQuotaEvaluator(DefaultLimits())

	tests := []struct {
		name     string
		resource Resource
		count    int64
		plan     Plan
		want     bool
	}{
		{"endpoint under", ResourceEndpoint, 2, PlanFree, true},
		{"endpoint at", ResourceEndpoint, 3, PlanFree, false},
		{"request pro under", ResourceRequest, 49999, PlanPro, true},
		{"analysis at", ResourceAnalysis, 5, PlanFree, false},
		{"unknown resource", Resource("bandwidth"), 0, PlanPro, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Allows(tt.resource, tt.count, tt.plan))
		})
	}
}

func TestQuotaEvaluator_Remaining(t *testing.T) {
	e := NewQuotaEvaluator(DefaultLimits())

	assert.Equal(t, int64(2), e.Remaining(ResourceEndpoint, 1, PlanFree))
	assert.Equal(t, int64(0), e.Remaining(ResourceEndpoint, 7, PlanFree))
	assert.Equal(t, int64(500), e.Remaining(ResourceAnalysis, 0, PlanPro))
}

func TestLimits_Validate(t *testing.T) {
	require.NoError(t, DefaultLimits().Validate())

	missing := Limits{PlanFree: {}}
	assert.Error(t, missing.Validate())

	negative := DefaultLimits()
	negative[PlanPro] = PlanLimits{MaxEndpoints: -1}
	assert.Error(t, negative.Validate())

	unknown := DefaultLimits()
	unknown[Plan("enterprise")] = PlanLimits{MaxEndpoints: 1000}
	assert.ErrorContains(t, unknown.Validate(), `unknown plan "enterprise"`)
}

func TestPlan_IsValid(t *testing.T) {
	assert.True(t, PlanFree.IsValid())
	assert.True(t, PlanPro.IsValid())
	assert.False(t, Plan("").IsValid())
	assert.False(t, Plan("Pro").IsValid())
}

func TestLimits_ProCoversFree(t *testing.T) {
	assert.True(t, DefaultLimits().ProCoversFree())

	inverted := DefaultLimits()
	inverted[PlanPro] = PlanLimits{MaxEndpoints: 1, MaxRequestsPerMonth: 1, MaxAIAnalysesPerMonth: 1}
	assert.False(t, inverted.ProCoversFree())
}
