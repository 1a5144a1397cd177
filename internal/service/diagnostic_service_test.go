package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/repository/contract"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/pkg/enrich/diagnostic"
	"leadqualify-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diagProvider answers the three-call diagnostic chain. The answer echoes the
// selected option label so fan-out of identical content is observable.
type diagProvider struct {
	mu          sync.Mutex
	answerCalls int
}

func (p *diagProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.Contains(prompt, "diagnostic answer (2-3 sentences)"):
		p.answerCalls++
		return "Relying on \"" + promptTag(prompt, "selected_option") + "\" keeps qualification slow and leaks pipeline.", nil
	case strings.Contains(prompt, "follow-up action options"):
		return `{"actions": ["Book a walkthrough", "Compare automation options"]}`, nil
	case strings.Contains(prompt, "mechanism narrative"):
		return `{"narratives": [
			{"action": "Book a walkthrough", "narrative": "A guided walkthrough replaces the current back-and-forth."},
			{"action": "Compare automation options", "narrative": "A comparison surfaces where automation removes steps."}
		]}`, nil
	}
	return "", nil
}

func (p *diagProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func promptTag(prompt, tag string) string {
	openTag, closeTag := "<"+tag+">", "</"+tag+">"
	start := strings.Index(prompt, openTag)
	end := strings.Index(prompt, closeTag)
	if start == -1 || end == -1 {
		return ""
	}
	return strings.TrimSpace(prompt[start+len(openTag) : end])
}

// Both pages carry the same two options, so the tenant has two unique
// (label, workflow class) pairs spread over four occurrences.
func seedDiagSummary(tenantId uuid.UUID, pageURL string) *entity.StructuredSummary {
	options := []entity.Option{
		{Label: "Manual emails", Tags: []string{"manual_scheduling", "conversion_risk"}, WorkflowClass: "scheduling_automation"},
		{Label: "Shared calendar link", Tags: []string{"low_friction", "low_risk"}, WorkflowClass: "optimization"},
	}
	return &entity.StructuredSummary{
		Id:       uuid.New(),
		TenantId: tenantId,
		PageURL:  pageURL,
		Sections: []entity.Section{{
			SectionName:   "Demo Scheduling",
			LeadQuestions: []entity.Question{{QuestionText: "How do you schedule demos today?", Options: options}},
		}},
	}
}

func newTestDiagnosticService(factory *memFactory, provider llm.Provider) IDiagnosticService {
	log := logger.NewNop()
	retriever := NewContentRetriever(factory, stubEmbedder{})
	generator := diagnostic.NewGenerator(provider, retriever, log)
	return NewDiagnosticService(factory, generator, memory.NewSummaryCache(), log)
}

func optionByLabel(t *testing.T, s *entity.StructuredSummary, label string) entity.Option {
	t.Helper()
	for _, sec := range s.Sections {
		for _, q := range sec.LeadQuestions {
			for _, opt := range q.Options {
				if opt.Label == label {
					return opt
				}
			}
		}
	}
	t.Fatalf("option %q not found on %s", label, s.PageURL)
	return entity.Option{}
}

func TestGenerateDiagnosticsDedupesAcrossPages(t *testing.T) {
	factory := newMemFactory()
	tenantId := uuid.New()
	pageA := seedDiagSummary(tenantId, "https://acme.example/pricing")
	pageB := seedDiagSummary(tenantId, "https://acme.example/features")
	factory.uow.summaries.rows = []*entity.StructuredSummary{pageA, pageB}

	provider := &diagProvider{}
	svc := newTestDiagnosticService(factory, provider)

	res, err := svc.GenerateDiagnosticContent(context.Background(), &dto.GenerateDiagnosticsRequest{
		TenantId: tenantId,
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.PagesUpdated)
	assert.Equal(t, 2, res.PairsProcessed)
	assert.Equal(t, 2, res.PairsCompleted)

	// One answer per unique pair, not one per occurrence.
	assert.Equal(t, 2, provider.answerCalls)

	for _, label := range []string{"Manual emails", "Shared calendar link"} {
		onA := optionByLabel(t, pageA, label)
		onB := optionByLabel(t, pageB, label)
		require.NotEmpty(t, onA.DiagnosticAnswer, "label %q on page A", label)
		assert.Equal(t, onA.DiagnosticAnswer, onB.DiagnosticAnswer, "label %q", label)
		assert.Equal(t, onA.DiagnosticActionList, onB.DiagnosticActionList, "label %q", label)
		assert.Len(t, onA.DiagnosticActionItems, 2, "label %q", label)
	}

	assert.Equal(t, 2, factory.uow.summaries.updates)
}

func TestGenerateDiagnosticsWithPageFilter(t *testing.T) {
	factory := newMemFactory()
	tenantId := uuid.New()
	pageA := seedDiagSummary(tenantId, "https://acme.example/pricing")
	pageB := seedDiagSummary(tenantId, "https://acme.example/features")
	factory.uow.summaries.rows = []*entity.StructuredSummary{pageA, pageB}

	provider := &diagProvider{}
	svc := newTestDiagnosticService(factory, provider)

	res, err := svc.GenerateDiagnosticContent(context.Background(), &dto.GenerateDiagnosticsRequest{
		TenantId: tenantId,
		PageURL:  pageA.PageURL,
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 1, res.PagesUpdated)
	assert.NotEmpty(t, optionByLabel(t, pageA, "Manual emails").DiagnosticAnswer)
	assert.Empty(t, optionByLabel(t, pageB, "Manual emails").DiagnosticAnswer)
}

func TestGenerateDiagnosticsNoSummaries(t *testing.T) {
	factory := newMemFactory()
	svc := newTestDiagnosticService(factory, &diagProvider{})

	res, err := svc.GenerateDiagnosticContent(context.Background(), &dto.GenerateDiagnosticsRequest{
		TenantId: uuid.New(),
	})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestContentRetrieverAppliesSimilarityFloor(t *testing.T) {
	factory := newMemFactory()
	tenantId := uuid.New()
	factory.uow.embeddings.scored = []*contract.ScoredContentChunk{
		{Chunk: &entity.ContentChunk{TenantId: tenantId, Document: "Acme automates demo scheduling end to end."}, Similarity: 0.91},
		{Chunk: &entity.ContentChunk{TenantId: tenantId, Document: "Footer boilerplate about cookies."}, Similarity: 0.12},
		{Chunk: &entity.ContentChunk{TenantId: uuid.New(), Document: "Another tenant's pricing copy."}, Similarity: 0.95},
	}

	retriever := NewContentRetriever(factory, stubEmbedder{})
	docs, err := retriever.TopSimilar(context.Background(), tenantId, "Manual emails", 5)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "Acme automates demo scheduling end to end.", docs[0])
	assert.InDelta(t, minContextSimilarity, factory.uow.embeddings.lastThreshold, 1e-9)
}
