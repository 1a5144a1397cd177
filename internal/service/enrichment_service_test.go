package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/pkg/enrich/normalize"
	"leadqualify-be/pkg/enrich/tagging"
	"leadqualify-be/pkg/enrich/taxonomy"
	"leadqualify-be/pkg/llm"
	"leadqualify-be/pkg/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// enrichProvider answers the three prompt shapes the pipeline sends during
// enrichment. Dispatch is by prompt content because calls interleave.
type enrichProvider struct {
	mu            sync.Mutex
	questionCalls int
	classifyCalls int
	repairCalls   int
}

const questionJSON = `{
	"lead_questions": [
		{"question": "How do you schedule demos today?", "options": ["Manual emails", "Shared calendar link"]},
		{"question": "Who runs onboarding for new clients?", "options": ["Dedicated team", "Whoever is free"]}
	],
	"sales_questions": [
		{"question": "How soon do you want to fix this?", "options": ["This quarter", "Just researching"]},
		{"question": "Have you tried other tools?", "options": ["Yes, switched away", "Never tried one"]}
	]
}`

const assignmentJSON = `{
	"assignments": [
		{"label": "Manual emails", "tags": ["manual_scheduling", "conversion_risk"]},
		{"label": "Shared calendar link", "tags": ["low_friction", "low_risk"]},
		{"label": "Dedicated team", "tags": ["validated_flow", "low_risk"]},
		{"label": "Whoever is free", "tags": ["inconsistent_process", "high_risk"]},
		{"label": "This quarter", "tags": ["optimization_ready", "conversion_risk"]},
		{"label": "Just researching", "tags": ["awareness_missing", "low_risk"]},
		{"label": "Yes, switched away", "tags": ["late_engagement", "high_risk"]},
		{"label": "Never tried one", "tags": ["unknown_state", "low_risk"]}
	]
}`

func (p *enrichProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.Contains(prompt, "qualification questions"):
		p.questionCalls++
		return questionJSON, nil
	case strings.Contains(prompt, "rewrite and tag answer options"):
		p.repairCalls++
		return `{"assignments": []}`, nil
	case strings.Contains(prompt, "fixed tag taxonomy"):
		p.classifyCalls++
		return assignmentJSON, nil
	case strings.Contains(prompt, "classify one web page"):
		return `{"page_type": "pricing", "business_name": "Acme Scheduling"}`, nil
	}
	return "", nil
}

func (p *enrichProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func pageContent() string {
	filler := strings.Repeat("Scheduling demos by hand costs sales teams hours every week and slows the pipeline down. ", 5)
	return "[SECTION 1] Demo Scheduling\n" + filler +
		"\n[SECTION 2] Client Onboarding\n" + filler
}

func newTestEnrichmentService(factory *memFactory, provider llm.Provider) (IEnrichmentService, *memory.SummaryCache) {
	log := logger.NewNop()
	classifier := tagging.NewClassifier(provider, retry.Policy{Attempts: 2, BaseDelay: time.Millisecond}, log)
	normalizer := normalize.NewNormalizer(provider, log)
	cache := memory.NewSummaryCache()
	svc := NewEnrichmentService(factory, provider, stubEmbedder{}, classifier, normalizer, cache, log)
	return svc, cache
}

func TestEnrichSummaryBuildsViableQuestionBank(t *testing.T) {
	factory := newMemFactory()
	provider := &enrichProvider{}
	svc, cache := newTestEnrichmentService(factory, provider)

	tenantId := uuid.New()
	res, err := svc.EnrichSummary(context.Background(), &dto.EnrichSummaryRequest{
		TenantId: tenantId,
		PageURL:  "https://acme.example/pricing",
		Content:  pageContent(),
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.SectionCount)
	assert.Equal(t, "pricing", res.PageType)
	assert.Equal(t, "Acme Scheduling", res.BusinessName)

	stored, err := factory.uow.summaries.FindOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Sections, 2)

	for _, sec := range stored.Sections {
		assert.Len(t, sec.LeadQuestions, 2, "section %q lead track", sec.SectionName)
		assert.Len(t, sec.SalesQuestions, 2, "section %q sales track", sec.SectionName)

		for _, q := range append(append([]entity.Question{}, sec.LeadQuestions...), sec.SalesQuestions...) {
			assert.GreaterOrEqual(t, len(q.Options), tagging.MinOptions)
			assert.LessOrEqual(t, len(q.Options), tagging.MaxOptions)
			for _, opt := range q.Options {
				assert.True(t, taxonomy.ValidPair(opt.Tags), "option %q tags %v", opt.Label, opt.Tags)
				assert.NotEmpty(t, opt.WorkflowClass, "option %q", opt.Label)
			}
		}
	}

	// One generation call per section, one classification batch for the page.
	assert.Equal(t, 2, provider.questionCalls)
	assert.Equal(t, 1, provider.classifyCalls)
	assert.Zero(t, provider.repairCalls)

	// Retrieval index was rebuilt for the page.
	assert.NotEmpty(t, factory.uow.embeddings.chunks)

	// A conversation turn right after enrichment hits the cache.
	cached, found := cache.Get(tenantId, "https://acme.example/pricing")
	require.True(t, found)
	assert.Equal(t, stored.Id, cached.Id)
}

func TestEnrichSummaryKeepsIdentityOnRecrawl(t *testing.T) {
	factory := newMemFactory()
	provider := &enrichProvider{}
	svc, _ := newTestEnrichmentService(factory, provider)

	tenantId := uuid.New()
	req := &dto.EnrichSummaryRequest{
		TenantId: tenantId,
		PageURL:  "https://acme.example/pricing",
		Content:  pageContent(),
	}

	first, err := svc.EnrichSummary(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.EnrichSummary(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.SummaryId, second.SummaryId)

	// Questions survived the recrawl, so no regeneration happened.
	assert.Equal(t, 2, provider.questionCalls)

	stored, err := factory.uow.summaries.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
