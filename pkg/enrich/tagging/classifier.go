// Package tagging assigns the closed two-tag vocabulary to free-text answer
// option labels via the generative text service, with a repair round and a
// deterministic fallback so every question leaves with 2-4 validly tagged
// options.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/enrich/taxonomy"
	"leadqualify-be/pkg/enrich/workflow"
	"leadqualify-be/pkg/llm"
	"leadqualify-be/pkg/retry"
)

const (
	// MinOptions and MaxOptions bound every option list after finalization.
	MinOptions = 2
	MaxOptions = 4
)

// Assignment pairs a label with its two tags as returned by the model.
type Assignment struct {
	Label string   `json:"label"`
	Tags  []string `json:"tags"`
}

type assignmentSet struct {
	Assignments []Assignment `json:"assignments"`
}

type Classifier struct {
	provider llm.Provider
	policy   retry.Policy
	logger   logger.ILogger
}

func NewClassifier(provider llm.Provider, policy retry.Policy, log logger.ILogger) *Classifier {
	return &Classifier{
		provider: provider,
		policy:   policy,
		logger:   log,
	}
}

// Classify sends one batch request for the de-duplicated labels and returns a
// label -> tag-pair map. Labels the model could not tag confidently are simply
// absent. Transient failures are retried on the configured policy; once
// exhausted the result is an empty map, never an error.
func (c *Classifier) Classify(ctx context.Context, labels []string) map[string][]string {
	unique := dedupe(labels)
	if len(unique) == 0 {
		return map[string][]string{}
	}

	prompt := c.buildBatchPrompt(unique)

	parsed, err := retry.Do(ctx, c.policy, func() (*assignmentSet, error) {
		response, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
		if err != nil {
			return nil, err
		}
		return parseAssignments(response)
	})
	if err != nil {
		c.logger.Warn("Tagging", "Batch classification exhausted retries", map[string]interface{}{
			"labels": len(unique),
			"error":  err.Error(),
		})
		return map[string][]string{}
	}

	result := make(map[string][]string, len(parsed.Assignments))
	for _, a := range parsed.Assignments {
		if taxonomy.ValidPair(a.Tags) {
			result[normalizeLabel(a.Label)] = a.Tags
		}
	}
	return result
}

// Repair sends the still-untagged options in a second, smaller request. The
// model must return a label plus exactly two valid tags per option and avoid
// labels semantically duplicating any already-valid sibling. Options the
// model cannot repair are omitted from the result.
func (c *Classifier) Repair(ctx context.Context, invalid []entity.Option, validSiblings []entity.Option) []entity.Option {
	if len(invalid) == 0 {
		return nil
	}

	prompt := c.buildRepairPrompt(invalid, validSiblings)

	response, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		c.logger.Warn("Tagging", "Repair call failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	parsed, err := parseAssignments(response)
	if err != nil {
		c.logger.Warn("Tagging", "Repair response unparseable", map[string]interface{}{"error": err.Error()})
		return nil
	}

	taken := make(map[string]bool, len(validSiblings))
	for _, s := range validSiblings {
		taken[normalizeLabel(s.Label)] = true
	}

	var repaired []entity.Option
	for _, a := range parsed.Assignments {
		if !taxonomy.ValidPair(a.Tags) {
			continue
		}
		key := normalizeLabel(a.Label)
		if key == "" || taken[key] {
			continue
		}
		taken[key] = true
		repaired = append(repaired, entity.Option{Label: strings.TrimSpace(a.Label), Tags: a.Tags})
	}
	return repaired
}

// FinalizeQuestion enforces the option bounds on a question whose options have
// been through classification and repair. Options without a valid tag pair
// are dropped; if fewer than MinOptions remain, options are padded back in
// from the original pre-repair list under the fallback tag pair; the list is
// truncated at MaxOptions without re-ranking. Every surviving option gets its
// workflow class derived from its tags.
func FinalizeQuestion(q *entity.Question, original []entity.Option) {
	var kept []entity.Option
	seen := make(map[string]bool)
	for _, opt := range q.Options {
		if !taxonomy.ValidPair(opt.Tags) {
			continue
		}
		key := normalizeLabel(opt.Label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, opt)
	}

	for _, opt := range original {
		if len(kept) >= MinOptions {
			break
		}
		key := normalizeLabel(opt.Label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		padded := opt
		padded.Tags = taxonomy.FallbackPair()
		kept = append(kept, padded)
	}

	if len(kept) > MaxOptions {
		kept = kept[:MaxOptions]
	}

	for i := range kept {
		kept[i].WorkflowClass = workflow.Route(kept[i].Tags)
	}
	q.Options = kept
}

func (c *Classifier) buildBatchPrompt(labels []string) string {
	var b strings.Builder

	b.WriteString("<system>\n")
	b.WriteString("You classify answer options from a business website into a fixed tag taxonomy.\n")
	b.WriteString("You do NOT invent tags. Every assignment uses exactly one primary and one secondary tag.\n")
	b.WriteString("</system>\n\n")

	b.WriteString("<labels>\n")
	for i, label := range labels {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, label))
	}
	b.WriteString("</labels>\n\n")

	writeTaxonomy(&b)

	b.WriteString("<output_format>\n")
	b.WriteString("Respond with ONLY valid JSON:\n")
	b.WriteString("{\n")
	b.WriteString("  \"assignments\": [\n")
	b.WriteString("    {\"label\": \"<label exactly as given>\", \"tags\": [\"<primary>\", \"<secondary>\"]}\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n")
	b.WriteString("Omit any label you cannot tag with confidence. Never guess outside the taxonomy.\n")
	b.WriteString("</output_format>")

	return b.String()
}

func (c *Classifier) buildRepairPrompt(invalid []entity.Option, validSiblings []entity.Option) string {
	var b strings.Builder

	b.WriteString("<system>\n")
	b.WriteString("You rewrite and tag answer options that failed classification.\n")
	b.WriteString("For EVERY option below, produce a short label plus exactly one primary and one secondary tag.\n")
	b.WriteString("</system>\n\n")

	b.WriteString("<options_to_repair>\n")
	for i, opt := range invalid {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, opt.Label))
	}
	b.WriteString("</options_to_repair>\n\n")

	if len(validSiblings) > 0 {
		b.WriteString("<existing_sibling_options>\n")
		for _, s := range validSiblings {
			b.WriteString(fmt.Sprintf("- %s\n", s.Label))
		}
		b.WriteString("Your repaired labels must NOT duplicate or closely paraphrase any sibling above.\n")
		b.WriteString("</existing_sibling_options>\n\n")
	}

	writeTaxonomy(&b)

	b.WriteString("<output_format>\n")
	b.WriteString("Respond with ONLY valid JSON:\n")
	b.WriteString("{\"assignments\": [{\"label\": \"...\", \"tags\": [\"<primary>\", \"<secondary>\"]}]}\n")
	b.WriteString("</output_format>")

	return b.String()
}

func writeTaxonomy(b *strings.Builder) {
	b.WriteString("<taxonomy>\n")
	b.WriteString("Primary tags (problem/readiness):\n")
	for _, t := range taxonomy.Primaries() {
		b.WriteString("  " + t + "\n")
	}
	b.WriteString("Secondary tags (risk/readiness modifier):\n")
	for _, t := range taxonomy.Secondaries() {
		b.WriteString("  " + t + "\n")
	}
	b.WriteString("</taxonomy>\n\n")
}

func parseAssignments(response string) (*assignmentSet, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}
	var set assignmentSet
	if err := json.Unmarshal([]byte(jsonContent), &set); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return &set, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		key := normalizeLabel(l)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(l))
	}
	return out
}
