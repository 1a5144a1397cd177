// Package diagnostic produces the diagnostic answer, follow-up actions and
// mechanism narratives for each unique (option label, workflow class) pair.
// Generation is grounded on tenant content retrieved from the vector index.
package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/enrich/workflow"
	"leadqualify-be/pkg/llm"
)

const (
	// BatchSize bounds concurrent generation; batches run sequentially so
	// the external service never sees more than this many in-flight chains.
	BatchSize = 5

	contextChunks = 3
)

// Retriever returns the most similar tenant content for a query text.
type Retriever interface {
	TopSimilar(ctx context.Context, tenantId uuid.UUID, text string, limit int) ([]string, error)
}

// Item is one unique (label, workflow class) pair to generate content for.
type Item struct {
	Label         string
	WorkflowClass string
}

// Result holds the three generation stages for one item. A failed stage
// leaves its field (and all later fields) empty.
type Result struct {
	Answer  string
	Actions []string
	Details []entity.ActionDetail
}

type Generator struct {
	provider  llm.Provider
	retriever Retriever
	logger    logger.ILogger
}

func NewGenerator(provider llm.Provider, retriever Retriever, log logger.ILogger) *Generator {
	return &Generator{
		provider:  provider,
		retriever: retriever,
		logger:    log,
	}
}

// GenerateBatch processes items in batches of BatchSize, each batch fully
// awaited before the next starts. A failed item yields an empty Result and
// is logged; nothing is retried and nothing blocks its batch.
func (g *Generator) GenerateBatch(ctx context.Context, tenantId uuid.UUID, items []Item) map[Item]Result {
	results := make(map[Item]Result, len(items))

	for start := 0; start < len(items); start += BatchSize {
		end := start + BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		batchResults := make([]Result, len(batch))

		var eg errgroup.Group
		for i, item := range batch {
			i, item := i, item
			eg.Go(func() error {
				batchResults[i] = g.generateItem(ctx, tenantId, item)
				return nil
			})
		}
		_ = eg.Wait()

		for i, item := range batch {
			results[item] = batchResults[i]
		}
	}

	return results
}

// generateItem runs the three-call chain: answer, actions, narratives.
// Each later stage is skipped when an earlier one produced nothing.
func (g *Generator) generateItem(ctx context.Context, tenantId uuid.UUID, item Item) Result {
	contextText := g.retrieveContext(ctx, tenantId, item.Label)

	answer := g.generateAnswer(ctx, item, contextText)
	if answer == "" {
		g.logger.Warn("Diagnostic", "Answer generation yielded nothing", map[string]interface{}{
			"label":    item.Label,
			"workflow": item.WorkflowClass,
		})
		return Result{}
	}

	actions := g.generateActions(ctx, item, answer, contextText)
	if len(actions) == 0 {
		return Result{Answer: answer}
	}

	details := g.generateDetails(ctx, item, answer, actions, contextText)
	return Result{Answer: answer, Actions: actions, Details: details}
}

func (g *Generator) retrieveContext(ctx context.Context, tenantId uuid.UUID, label string) string {
	chunks, err := g.retriever.TopSimilar(ctx, tenantId, label, contextChunks)
	if err != nil {
		g.logger.Warn("Diagnostic", "Context retrieval failed", map[string]interface{}{
			"label": label,
			"error": err.Error(),
		})
		return ""
	}
	return strings.Join(chunks, "\n---\n")
}

// answerAngles selects the template angle for the short diagnostic answer.
var answerAngles = map[string]string{
	workflow.ClassValidationPath:       "Affirm that their current flow works and frame the next step as validating and scaling what already converts.",
	workflow.ClassOptimizationWorkflow: "Quantify the hidden cost of friction in their current manual process and what removing it unlocks.",
	workflow.ClassDiagnosticEducation:  "Explain why visibility into this behavior matters and what staying blind to it costs over time.",
	workflow.ClassSalesAlert:           "Make the cost of inaction concrete: what is being lost right now and why acting soon matters.",
}

func (g *Generator) generateAnswer(ctx context.Context, item Item, contextText string) string {
	angle, ok := answerAngles[item.WorkflowClass]
	if !ok {
		angle = answerAngles[workflow.ClassDiagnosticEducation]
	}

	var b strings.Builder
	b.WriteString("<system>\n")
	b.WriteString("You write one short diagnostic answer (2-3 sentences) for a visitor who selected an answer option on a business website.\n")
	b.WriteString("Angle: " + angle + "\n")
	b.WriteString("</system>\n\n")
	b.WriteString("<selected_option>\n" + item.Label + "\n</selected_option>\n\n")
	if contextText != "" {
		b.WriteString("<site_context>\n" + contextText + "\n</site_context>\n\n")
	}
	b.WriteString("Respond with ONLY the 2-3 sentence answer, no preamble.")

	response, err := g.provider.Generate(ctx, b.String(), llm.WithTemperature(0.5))
	if err != nil {
		g.logger.Warn("Diagnostic", "Answer call failed", map[string]interface{}{
			"label": item.Label,
			"error": err.Error(),
		})
		return ""
	}
	return strings.TrimSpace(response)
}

type actionPayload struct {
	Actions []string `json:"actions"`
}

func (g *Generator) generateActions(ctx context.Context, item Item, answer, contextText string) []string {
	var b strings.Builder
	b.WriteString("<system>\n")
	b.WriteString("You derive follow-up action options from a diagnostic answer.\n")
	b.WriteString("Produce 3 or 4 actions, each at most 5 words, phrased as things the visitor could explore next.\n")
	b.WriteString("</system>\n\n")
	b.WriteString("<diagnostic_answer>\n" + answer + "\n</diagnostic_answer>\n\n")
	if contextText != "" {
		b.WriteString("<site_context>\n" + contextText + "\n</site_context>\n\n")
	}
	b.WriteString("Respond with ONLY valid JSON: {\"actions\": [\"...\"]}")

	response, err := g.provider.Generate(ctx, b.String(), llm.WithTemperature(0.4))
	if err != nil {
		g.logger.Warn("Diagnostic", "Actions call failed", map[string]interface{}{
			"label": item.Label,
			"error": err.Error(),
		})
		return nil
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil
	}
	var payload actionPayload
	if err := json.Unmarshal([]byte(jsonContent), &payload); err != nil {
		g.logger.Warn("Diagnostic", "Actions response unparseable", map[string]interface{}{
			"label": item.Label,
			"error": err.Error(),
		})
		return nil
	}

	var actions []string
	for _, a := range payload.Actions {
		a = strings.TrimSpace(a)
		if a == "" || len(strings.Fields(a)) > 5 {
			continue
		}
		actions = append(actions, a)
	}
	if len(actions) > 4 {
		actions = actions[:4]
	}
	return actions
}

type detailPayload struct {
	Narratives []struct {
		Action    string `json:"action"`
		Narrative string `json:"narrative"`
	} `json:"narratives"`
}

func (g *Generator) generateDetails(ctx context.Context, item Item, answer string, actions []string, contextText string) []entity.ActionDetail {
	var b strings.Builder
	b.WriteString("<system>\n")
	b.WriteString("You write one mechanism narrative (8-14 lines) per follow-up action.\n")
	b.WriteString("Every narrative follows this five-part structure in order:\n")
	b.WriteString("1. Positioning contrast with how the visitor handles things today.\n")
	b.WriteString("2. The behavioral signals that would be monitored.\n")
	b.WriteString("3. The activation threshold or model that fires.\n")
	b.WriteString("4. The intervention triggered when it fires.\n")
	b.WriteString("5. The business outcome that follows.\n")
	b.WriteString("</system>\n\n")
	b.WriteString("<diagnostic_answer>\n" + answer + "\n</diagnostic_answer>\n\n")
	b.WriteString("<actions>\n")
	for i, a := range actions {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, a))
	}
	b.WriteString("</actions>\n\n")
	if contextText != "" {
		b.WriteString("<site_context>\n" + contextText + "\n</site_context>\n\n")
	}
	b.WriteString("Respond with ONLY valid JSON:\n")
	b.WriteString("{\"narratives\": [{\"action\": \"<action exactly as given>\", \"narrative\": \"...\"}]}")

	response, err := g.provider.Generate(ctx, b.String(), llm.WithTemperature(0.5))
	if err != nil {
		g.logger.Warn("Diagnostic", "Narratives call failed", map[string]interface{}{
			"label": item.Label,
			"error": err.Error(),
		})
		return nil
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil
	}
	var payload detailPayload
	if err := json.Unmarshal([]byte(jsonContent), &payload); err != nil {
		g.logger.Warn("Diagnostic", "Narratives response unparseable", map[string]interface{}{
			"label": item.Label,
			"error": err.Error(),
		})
		return nil
	}

	var details []entity.ActionDetail
	for _, n := range payload.Narratives {
		label := strings.TrimSpace(n.Action)
		narrative := strings.TrimSpace(n.Narrative)
		if label == "" || narrative == "" {
			continue
		}
		details = append(details, entity.ActionDetail{Label: label, Narrative: narrative})
	}
	return details
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}
