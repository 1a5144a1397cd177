// Package taxonomy holds the closed two-tag vocabulary applied to answer
// options. Everything downstream (routing, risk flags, diagnostics) keys off
// these exact strings, so nothing outside this package defines tag literals.
package taxonomy

import "sort"

// Primary tags describe the problem / readiness signal of an option.
const (
	TagManualScheduling        = "manual_scheduling"
	TagSchedulingGap           = "scheduling_gap"
	TagOnboardingDelay         = "onboarding_delay"
	TagOnboardingDropoff       = "onboarding_dropoff"
	TagPipelineLeakage         = "pipeline_leakage"
	TagInconsistentProcess     = "inconsistent_process"
	TagHandoffFriction         = "handoff_friction"
	TagVisibilityGap           = "visibility_gap"
	TagNoShowRisk              = "no_show_risk"
	TagLateEngagement          = "late_engagement"
	TagStakeholderCoordination = "stakeholder_coordination"
	TagCapacityConstraint      = "capacity_constraint"
	TagValidatedFlow           = "validated_flow"
	TagOptimizationReady       = "optimization_ready"
	TagAwarenessMissing        = "awareness_missing"
	TagUnknownState            = "unknown_state"
	TagLowFriction             = "low_friction"
)

// Secondary tags are risk / readiness modifiers.
const (
	TagLowRisk        = "low_risk"
	TagConversionRisk = "conversion_risk"
	TagHighRisk       = "high_risk"
	TagCriticalRisk   = "critical_risk"
)

var primaryTags = map[string]bool{
	TagManualScheduling:        true,
	TagSchedulingGap:           true,
	TagOnboardingDelay:         true,
	TagOnboardingDropoff:       true,
	TagPipelineLeakage:         true,
	TagInconsistentProcess:     true,
	TagHandoffFriction:         true,
	TagVisibilityGap:           true,
	TagNoShowRisk:              true,
	TagLateEngagement:          true,
	TagStakeholderCoordination: true,
	TagCapacityConstraint:      true,
	TagValidatedFlow:           true,
	TagOptimizationReady:       true,
	TagAwarenessMissing:        true,
	TagUnknownState:            true,
	TagLowFriction:             true,
}

var secondaryTags = map[string]bool{
	TagLowRisk:           true,
	TagConversionRisk:    true,
	TagHighRisk:          true,
	TagCriticalRisk:      true,
	TagValidatedFlow:     true,
	TagOptimizationReady: true,
	TagAwarenessMissing:  true,
}

// IsPrimary reports whether tag belongs to the primary vocabulary.
func IsPrimary(tag string) bool {
	return primaryTags[tag]
}

// IsSecondary reports whether tag belongs to the secondary vocabulary.
func IsSecondary(tag string) bool {
	return secondaryTags[tag]
}

// ValidPair reports whether tags is exactly a (primary, secondary) pair.
// Options failing this check are invalid and must be repaired or dropped.
func ValidPair(tags []string) bool {
	if len(tags) != 2 {
		return false
	}
	return IsPrimary(tags[0]) && IsSecondary(tags[1])
}

// FallbackPair is the tag pair applied to options padded back in after an
// unsuccessful repair round.
func FallbackPair() []string {
	return []string{TagUnknownState, TagLowRisk}
}

// Primaries returns the primary vocabulary for prompt construction.
func Primaries() []string {
	out := make([]string, 0, len(primaryTags))
	for t := range primaryTags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Secondaries returns the secondary vocabulary for prompt construction.
func Secondaries() []string {
	out := make([]string, 0, len(secondaryTags))
	for t := range secondaryTags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
