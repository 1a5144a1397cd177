package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"critical risk routes to sales alert", []string{"pipeline_leakage", "critical_risk"}, ClassSalesAlert},
		{"high risk secondary alone triggers alert", []string{"visibility_gap", "high_risk"}, ClassSalesAlert},
		{"conversion risk triggers alert", []string{"late_engagement", "conversion_risk"}, ClassSalesAlert},
		{"onboarding dropoff triggers alert", []string{"onboarding_dropoff", "low_risk"}, ClassSalesAlert},
		{"manual scheduling routes to optimization", []string{"manual_scheduling", "low_risk"}, ClassOptimizationWorkflow},
		{"handoff friction routes to optimization", []string{"handoff_friction", "low_risk"}, ClassOptimizationWorkflow},
		{"stakeholder coordination routes to optimization", []string{"stakeholder_coordination", "low_risk"}, ClassOptimizationWorkflow},
		{"validated flow routes to validation", []string{"validated_flow", "low_risk"}, ClassValidationPath},
		{"low friction routes to validation", []string{"low_friction", "optimization_ready"}, ClassValidationPath},
		{"awareness missing falls through to education", []string{"awareness_missing", "low_risk"}, ClassDiagnosticEducation},
		{"visibility gap falls through to education", []string{"visibility_gap", "low_risk"}, ClassDiagnosticEducation},
		{"unknown state falls through to education", []string{"unknown_state", "low_risk"}, ClassDiagnosticEducation},
		{"empty tags default to education", nil, ClassDiagnosticEducation},
		{"alert beats optimization when both present", []string{"manual_scheduling", "critical_risk"}, ClassSalesAlert},
		{"optimization beats validation when both present", []string{"scheduling_gap", "optimization_ready"}, ClassOptimizationWorkflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.tags))
		})
	}
}

func TestRouteIsPure(t *testing.T) {
	tags := []string{"pipeline_leakage", "critical_risk"}
	for i := 0; i < 100; i++ {
		assert.Equal(t, ClassSalesAlert, Route(tags))
	}
}

func TestIsSalesRelevant(t *testing.T) {
	assert.True(t, IsSalesRelevant(ClassSalesAlert))
	assert.True(t, IsSalesRelevant(ClassOptimizationWorkflow))
	assert.False(t, IsSalesRelevant(ClassValidationPath))
	assert.False(t, IsSalesRelevant(ClassDiagnosticEducation))
}
