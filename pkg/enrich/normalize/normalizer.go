// Package normalize reconciles a stored summary's sections against freshly
// segmented blocks and guarantees every section carries a minimum viable
// question model before the conversation engine ever sees it.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/enrich/segment"
	"leadqualify-be/pkg/enrich/taxonomy"
	"leadqualify-be/pkg/enrich/workflow"
	"leadqualify-be/pkg/llm"
)

const (
	// QuestionsPerTrack is enforced for both lead and sales questions.
	QuestionsPerTrack = 2

	summaryTruncateChars = 400

	// sectionDelay paces LLM generation between sections to respect
	// external rate limits. Sections are processed sequentially.
	sectionDelay = 2 * time.Second
)

type Normalizer struct {
	provider llm.Provider
	logger   logger.ILogger
	delay    time.Duration
}

func NewNormalizer(provider llm.Provider, log logger.ILogger) *Normalizer {
	return &Normalizer{
		provider: provider,
		logger:   log,
		delay:    sectionDelay,
	}
}

// Realign overlays the existing sections onto the new block list position by
// position. The base for position i is always the existing section at i and
// never a section from a different index. A genuinely new position gets its
// lead/sales questions explicitly cleared so they are regenerated instead of
// inherited from an unrelated section.
func Realign(existing []entity.Section, blocks []segment.Block) []entity.Section {
	sections := make([]entity.Section, len(blocks))
	for i, block := range blocks {
		var base entity.Section
		hadExisting := i < len(existing)
		if hadExisting {
			base = existing[i]
		}

		name := strings.TrimSpace(block.Title)
		if name == "" {
			name = base.SectionName
		}
		if name == "" {
			name = fmt.Sprintf("Section %d", i+1)
		}

		summary := base.SectionSummary
		if strings.TrimSpace(summary) == "" {
			summary = truncate(block.Body, summaryTruncateChars)
		}

		section := entity.Section{
			SectionName:    name,
			SectionSummary: summary,
			SectionContent: block.Body,
			SectionType:    classifySectionType(name),
			LeadQuestions:  base.LeadQuestions,
			SalesQuestions: base.SalesQuestions,
		}
		if !hadExisting {
			section.LeadQuestions = nil
			section.SalesQuestions = nil
		}
		sections[i] = section
	}
	return sections
}

// Backfill generates lead and sales questions for every section missing them,
// one section at a time with a pacing delay between LLM calls, then enforces
// the minimum viable structure on every section regardless of generation
// success.
func (n *Normalizer) Backfill(ctx context.Context, sections []entity.Section) []entity.Section {
	for i := range sections {
		needsLead := len(sections[i].LeadQuestions) < QuestionsPerTrack
		needsSales := len(sections[i].SalesQuestions) < QuestionsPerTrack

		if needsLead || needsSales {
			if i > 0 {
				select {
				case <-time.After(n.delay):
				case <-ctx.Done():
				}
			}
			generated := n.generateQuestions(ctx, &sections[i])
			if generated != nil {
				if needsLead {
					sections[i].LeadQuestions = generated.Lead
				}
				if needsSales {
					sections[i].SalesQuestions = generated.Sales
				}
			}
		}

		EnsureViable(&sections[i])
	}
	return sections
}

// EnsureViable pads a section to exactly two lead and two sales questions,
// each with two to four options, synthesizing generic filler wherever
// upstream generation came up short. Filler options arrive pre-tagged with
// the fallback pair so downstream routing always has material.
func EnsureViable(section *entity.Section) {
	section.LeadQuestions = padQuestions(section.LeadQuestions, section.SectionName, leadFillers)
	section.SalesQuestions = padQuestions(section.SalesQuestions, section.SectionName, salesFillers)
}

type generatedQuestions struct {
	Lead  []entity.Question
	Sales []entity.Question
}

type questionPayload struct {
	LeadQuestions  []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"lead_questions"`
	SalesQuestions []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"sales_questions"`
}

func (n *Normalizer) generateQuestions(ctx context.Context, section *entity.Section) *generatedQuestions {
	prompt := buildQuestionPrompt(section)

	response, err := n.provider.Generate(ctx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		n.logger.Warn("Normalize", "Question generation failed", map[string]interface{}{
			"section": section.SectionName,
			"error":   err.Error(),
		})
		return nil
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		n.logger.Warn("Normalize", "Question response held no JSON", map[string]interface{}{
			"section": section.SectionName,
		})
		return nil
	}

	var payload questionPayload
	if err := json.Unmarshal([]byte(jsonContent), &payload); err != nil {
		n.logger.Warn("Normalize", "Question response unparseable", map[string]interface{}{
			"section": section.SectionName,
			"error":   err.Error(),
		})
		return nil
	}

	out := &generatedQuestions{}
	for _, q := range payload.LeadQuestions {
		if parsed := toQuestion(q.Question, q.Options); parsed != nil {
			out.Lead = append(out.Lead, *parsed)
		}
	}
	for _, q := range payload.SalesQuestions {
		if parsed := toQuestion(q.Question, q.Options); parsed != nil {
			out.Sales = append(out.Sales, *parsed)
		}
	}
	return out
}

func buildQuestionPrompt(section *entity.Section) string {
	var b strings.Builder

	b.WriteString("<system>\n")
	b.WriteString("You write qualification questions for a website visitor based on one page section.\n")
	b.WriteString("Lead questions probe the visitor's current situation; sales questions probe buying intent.\n")
	b.WriteString("</system>\n\n")

	b.WriteString("<section>\n")
	b.WriteString("Title: " + section.SectionName + "\n")
	b.WriteString(truncate(section.SectionContent, 1500))
	b.WriteString("\n</section>\n\n")

	b.WriteString("<rules>\n")
	b.WriteString("- Exactly 2 lead questions and 2 sales questions.\n")
	b.WriteString("- Each question has 2 to 4 short answer options.\n")
	b.WriteString("- The two questions in a track must NOT share their main keyword or theme.\n")
	b.WriteString("- Options are concrete states a visitor could be in, not yes/no.\n")
	b.WriteString("</rules>\n\n")

	b.WriteString("<output_format>\n")
	b.WriteString("Respond with ONLY valid JSON:\n")
	b.WriteString("{\"lead_questions\": [{\"question\": \"...\", \"options\": [\"...\"]}],\n")
	b.WriteString(" \"sales_questions\": [{\"question\": \"...\", \"options\": [\"...\"]}]}\n")
	b.WriteString("</output_format>")

	return b.String()
}

func toQuestion(text string, optionLabels []string) *entity.Question {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	q := entity.Question{QuestionText: text}
	for _, label := range optionLabels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		q.Options = append(q.Options, entity.Option{Label: label})
	}
	if len(q.Options) == 0 {
		return nil
	}
	if len(q.Options) > 4 {
		q.Options = q.Options[:4]
	}
	return &q
}

type fillerTemplate struct {
	question string
	options  []string
}

var leadFillers = []fillerTemplate{
	{
		question: "How do you currently handle what \"%s\" describes?",
		options:  []string{"Fully manual today", "Partly automated", "Not handling it yet"},
	},
	{
		question: "What is the biggest obstacle in this area for your team?",
		options:  []string{"Not enough time", "No clear process", "Missing the right tool"},
	},
}

var salesFillers = []fillerTemplate{
	{
		question: "How soon are you looking to improve this?",
		options:  []string{"Within a month", "This quarter", "Just exploring"},
	},
	{
		question: "Who would be involved in a decision like this?",
		options:  []string{"Just me", "My team lead", "Several stakeholders"},
	},
}

func padQuestions(questions []entity.Question, sectionName string, fillers []fillerTemplate) []entity.Question {
	// Drop questions that cannot reach the option minimum even after padding.
	var kept []entity.Question
	for _, q := range questions {
		if strings.TrimSpace(q.QuestionText) == "" || len(q.Options) == 0 {
			continue
		}
		if len(q.Options) > 4 {
			q.Options = q.Options[:4]
		}
		kept = append(kept, q)
	}

	for i := 0; len(kept) < QuestionsPerTrack && i < len(fillers); i++ {
		f := fillers[i]
		text := f.question
		if strings.Contains(text, "%s") {
			text = fmt.Sprintf(text, sectionName)
		}
		q := entity.Question{QuestionText: text}
		for _, label := range f.options {
			q.Options = append(q.Options, entity.Option{
				Label:         label,
				Tags:          taxonomy.FallbackPair(),
				WorkflowClass: workflow.Route(taxonomy.FallbackPair()),
			})
		}
		kept = append(kept, q)
	}

	if len(kept) > QuestionsPerTrack {
		kept = kept[:QuestionsPerTrack]
	}

	// A generated question with a single option still needs a second one.
	for i := range kept {
		if len(kept[i].Options) < 2 {
			kept[i].Options = append(kept[i].Options, entity.Option{
				Label:         "Something else",
				Tags:          taxonomy.FallbackPair(),
				WorkflowClass: workflow.Route(taxonomy.FallbackPair()),
			})
		}
	}

	return kept
}

func classifySectionType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "pricing") || strings.Contains(lower, "plan"):
		return "pricing"
	case strings.Contains(lower, "faq") || strings.Contains(lower, "question"):
		return "faq"
	case strings.Contains(lower, "about") || strings.Contains(lower, "team"):
		return "about"
	case strings.Contains(lower, "feature") || strings.Contains(lower, "how"):
		return "features"
	default:
		return "content"
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}
