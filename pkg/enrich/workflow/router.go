// Package workflow maps an option's tag pair onto one of four downstream
// workflow classes. Routing is a pure function of the tags: the cached
// workflow_class stored next to an option is convenience only and can be
// re-derived here at any time.
package workflow

import "leadqualify-be/pkg/enrich/taxonomy"

// Workflow classes, in routing priority order.
const (
	ClassSalesAlert           = "sales_alert"
	ClassOptimizationWorkflow = "optimization_workflow"
	ClassValidationPath       = "validation_path"
	ClassDiagnosticEducation  = "diagnostic_education"
)

var salesAlertTags = map[string]bool{
	taxonomy.TagCriticalRisk:      true,
	taxonomy.TagPipelineLeakage:   true,
	taxonomy.TagOnboardingDropoff: true,
	taxonomy.TagHighRisk:          true,
	taxonomy.TagConversionRisk:    true,
}

var optimizationTags = map[string]bool{
	taxonomy.TagManualScheduling:        true,
	taxonomy.TagSchedulingGap:           true,
	taxonomy.TagHandoffFriction:         true,
	taxonomy.TagCapacityConstraint:      true,
	taxonomy.TagStakeholderCoordination: true,
	taxonomy.TagInconsistentProcess:     true,
}

var validationTags = map[string]bool{
	taxonomy.TagValidatedFlow:     true,
	taxonomy.TagLowFriction:       true,
	taxonomy.TagOptimizationReady: true,
}

// Route resolves the workflow class for a tag set. First match wins:
// sales alert beats optimization beats validation; everything else
// (awareness_missing, visibility_gap, unknown_state, or no match at all)
// falls through to diagnostic education.
func Route(tags []string) string {
	for _, t := range tags {
		if salesAlertTags[t] {
			return ClassSalesAlert
		}
	}
	for _, t := range tags {
		if optimizationTags[t] {
			return ClassOptimizationWorkflow
		}
	}
	for _, t := range tags {
		if validationTags[t] {
			return ClassValidationPath
		}
	}
	return ClassDiagnosticEducation
}

// IsSalesRelevant reports whether a workflow class should pull the visitor
// into the sales question track rather than the educational closing.
func IsSalesRelevant(class string) bool {
	return class == ClassSalesAlert || class == ClassOptimizationWorkflow
}
