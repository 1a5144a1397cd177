package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/enrich/segment"
	"leadqualify-be/pkg/llm"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, "", options...)
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestNormalizer(provider llm.Provider) *Normalizer {
	n := NewNormalizer(provider, logger.NewNop())
	n.delay = 0
	return n
}

func questionsOf(texts ...string) []entity.Question {
	qs := make([]entity.Question, len(texts))
	for i, t := range texts {
		qs[i] = entity.Question{
			QuestionText: t,
			Options:      []entity.Option{{Label: "opt a"}, {Label: "opt b"}},
		}
	}
	return qs
}

func TestRealignOverlaysByPosition(t *testing.T) {
	existing := []entity.Section{
		{
			SectionName:    "Hero",
			SectionSummary: "Old hero summary",
			LeadQuestions:  questionsOf("hero lead 1", "hero lead 2"),
			SalesQuestions: questionsOf("hero sales 1", "hero sales 2"),
		},
		{
			SectionName:    "Pricing",
			SectionSummary: "Old pricing summary",
			LeadQuestions:  questionsOf("pricing lead 1", "pricing lead 2"),
			SalesQuestions: questionsOf("pricing sales 1", "pricing sales 2"),
		},
	}
	blocks := []segment.Block{
		{Title: "Hero Refreshed", Body: "new hero body"},
		{Title: "Pricing", Body: "new pricing body"},
	}

	sections := Realign(existing, blocks)

	assert.Len(t, sections, 2)
	assert.Equal(t, "Hero Refreshed", sections[0].SectionName)
	assert.Equal(t, "Old hero summary", sections[0].SectionSummary, "existing summary survives a title change")
	assert.Equal(t, "new hero body", sections[0].SectionContent)
	assert.Equal(t, "hero lead 1", sections[0].LeadQuestions[0].QuestionText)
	assert.Equal(t, "pricing sales 2", sections[1].SalesQuestions[1].QuestionText)
}

func TestRealignNewPositionClearsQuestions(t *testing.T) {
	existing := []entity.Section{
		{SectionName: "Hero", LeadQuestions: questionsOf("q1", "q2")},
	}
	blocks := []segment.Block{
		{Title: "Hero", Body: "body"},
		{Title: "Testimonials", Body: "brand new block"},
	}

	sections := Realign(existing, blocks)

	assert.Len(t, sections, 2)
	assert.Nil(t, sections[1].LeadQuestions, "a new position never inherits another section's questions")
	assert.Nil(t, sections[1].SalesQuestions)
}

func TestRealignShrinkDropsTrailingSections(t *testing.T) {
	existing := []entity.Section{
		{SectionName: "A"}, {SectionName: "B"}, {SectionName: "C"},
	}
	blocks := []segment.Block{{Title: "A", Body: "body"}}

	sections := Realign(existing, blocks)

	assert.Len(t, sections, 1)
	assert.Equal(t, "A", sections[0].SectionName)
}

func TestRealignNameFallbackChain(t *testing.T) {
	existing := []entity.Section{{SectionName: "Kept Name"}}
	blocks := []segment.Block{
		{Title: "", Body: "body one"},
		{Title: "", Body: "body two"},
	}

	sections := Realign(existing, blocks)

	assert.Equal(t, "Kept Name", sections[0].SectionName)
	assert.Equal(t, "Section 2", sections[1].SectionName)
}

func TestRealignSummaryFallsBackToTruncatedBody(t *testing.T) {
	longBody := strings.Repeat("x", 1000)
	sections := Realign(nil, []segment.Block{{Title: "T", Body: longBody}})

	assert.Len(t, sections[0].SectionSummary, 400)
}

func TestBackfillGeneratesMissingQuestions(t *testing.T) {
	provider := &fakeProvider{response: `{
		"lead_questions": [
			{"question": "How do you schedule?", "options": ["By hand", "With a tool"]},
			{"question": "Where do leads come from?", "options": ["Referrals", "Ads", "Outbound"]}
		],
		"sales_questions": [
			{"question": "When would you start?", "options": ["Now", "Later"]},
			{"question": "Who decides?", "options": ["Me", "My boss"]}
		]
	}`}
	n := newTestNormalizer(provider)

	sections := n.Backfill(context.Background(), []entity.Section{{SectionName: "Hero", SectionContent: "body"}})

	assert.Equal(t, 1, provider.calls)
	assert.Len(t, sections[0].LeadQuestions, 2)
	assert.Len(t, sections[0].SalesQuestions, 2)
	assert.Equal(t, "How do you schedule?", sections[0].LeadQuestions[0].QuestionText)
}

func TestBackfillSkipsAlreadyViableSections(t *testing.T) {
	provider := &fakeProvider{}
	n := newTestNormalizer(provider)

	sections := n.Backfill(context.Background(), []entity.Section{{
		SectionName:    "Hero",
		LeadQuestions:  questionsOf("l1", "l2"),
		SalesQuestions: questionsOf("s1", "s2"),
	}})

	assert.Zero(t, provider.calls)
	assert.Len(t, sections[0].LeadQuestions, 2)
}

func TestBackfillFailureFallsBackToFillers(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	n := newTestNormalizer(provider)

	sections := n.Backfill(context.Background(), []entity.Section{{SectionName: "Pricing"}})

	assert.Len(t, sections[0].LeadQuestions, 2)
	assert.Len(t, sections[0].SalesQuestions, 2)
	for _, q := range append(sections[0].LeadQuestions, sections[0].SalesQuestions...) {
		assert.GreaterOrEqual(t, len(q.Options), 2)
		for _, opt := range q.Options {
			assert.Len(t, opt.Tags, 2, "filler options arrive pre-tagged")
			assert.NotEmpty(t, opt.WorkflowClass)
		}
	}
}

func TestEnsureViablePadsSingleOptionQuestion(t *testing.T) {
	section := entity.Section{
		SectionName: "Features",
		LeadQuestions: []entity.Question{
			{QuestionText: "only one option", Options: []entity.Option{{Label: "lonely"}}},
		},
	}

	EnsureViable(&section)

	assert.Len(t, section.LeadQuestions, 2)
	assert.Len(t, section.LeadQuestions[0].Options, 2)
	assert.Equal(t, "Something else", section.LeadQuestions[0].Options[1].Label)
}

func TestEnsureViableTruncatesExcess(t *testing.T) {
	section := entity.Section{
		SectionName:    "Features",
		LeadQuestions:  questionsOf("a", "b", "c", "d"),
		SalesQuestions: questionsOf("e", "f"),
	}

	EnsureViable(&section)

	assert.Len(t, section.LeadQuestions, QuestionsPerTrack)
	assert.Equal(t, "a", section.LeadQuestions[0].QuestionText)
}

func TestEnsureViableDropsEmptyQuestions(t *testing.T) {
	section := entity.Section{
		SectionName: "About",
		LeadQuestions: []entity.Question{
			{QuestionText: "   ", Options: []entity.Option{{Label: "x"}}},
			{QuestionText: "real", Options: nil},
		},
	}

	EnsureViable(&section)

	assert.Len(t, section.LeadQuestions, 2)
	for _, q := range section.LeadQuestions {
		assert.NotEqual(t, "real", q.QuestionText, "question without options is replaced by filler")
	}
}

func TestClassifySectionType(t *testing.T) {
	cases := map[string]string{
		"Pricing Plans":      "pricing",
		"FAQ":                "faq",
		"About the Team":     "about",
		"How It Works":       "features",
		"Customer Stories":   "content",
		"Frequent Questions": "faq",
	}
	for name, expected := range cases {
		assert.Equal(t, expected, classifySectionType(name), name)
	}
}
