package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/enrich/workflow"
	"leadqualify-be/pkg/llm"
)

// stageProvider answers per stage, keyed off the prompt. Generation within a
// batch is concurrent, so all state is mutex guarded.
type stageProvider struct {
	mu          sync.Mutex
	calls       int
	maxInFlight int
	inFlight    int

	answerErr  error
	actionsRaw string
	detailsRaw string
}

func (p *stageProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (p *stageProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.mu.Lock()
	p.calls++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	switch {
	case strings.Contains(prompt, "diagnostic answer (2-3 sentences)"):
		if p.answerErr != nil {
			return "", p.answerErr
		}
		return "A concrete diagnostic answer.", nil
	case strings.Contains(prompt, "follow-up action options"):
		if p.actionsRaw != "" {
			return p.actionsRaw, nil
		}
		return `{"actions": ["See the playbook", "Watch a demo", "Compare your numbers"]}`, nil
	case strings.Contains(prompt, "mechanism narrative"):
		if p.detailsRaw != "" {
			return p.detailsRaw, nil
		}
		return `{"narratives": [
			{"action": "See the playbook", "narrative": "Today you chase leads by hand. We watch the signals. A threshold fires. An intervention triggers. Revenue follows."},
			{"action": "Watch a demo", "narrative": "Today things slip. Signals get tracked. The model fires. Outreach triggers. Deals close."}
		]}`, nil
	}
	return "", errors.New("unrecognized prompt")
}

type fakeRetriever struct {
	chunks []string
	err    error
}

func (r *fakeRetriever) TopSimilar(ctx context.Context, tenantId uuid.UUID, text string, limit int) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.chunks, nil
}

func newTestGenerator(p llm.Provider, r Retriever) *Generator {
	return NewGenerator(p, r, logger.NewNop())
}

func TestGenerateBatchFullChain(t *testing.T) {
	provider := &stageProvider{}
	g := newTestGenerator(provider, &fakeRetriever{chunks: []string{"pricing copy", "feature copy"}})

	item := Item{Label: "Leads go cold", WorkflowClass: workflow.ClassSalesAlert}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	assert.Len(t, results, 1)
	r := results[item]
	assert.Equal(t, "A concrete diagnostic answer.", r.Answer)
	assert.Equal(t, []string{"See the playbook", "Watch a demo", "Compare your numbers"}, r.Actions)
	assert.Len(t, r.Details, 2)
	assert.Equal(t, "See the playbook", r.Details[0].Label)
	assert.Equal(t, 3, provider.calls, "answer, actions, narratives")
}

func TestGenerateBatchAnswerFailureYieldsEmptyResult(t *testing.T) {
	provider := &stageProvider{answerErr: errors.New("down")}
	g := newTestGenerator(provider, &fakeRetriever{})

	item := Item{Label: "x", WorkflowClass: workflow.ClassDiagnosticEducation}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	assert.Equal(t, Result{}, results[item])
	assert.Equal(t, 1, provider.calls, "chain stops after the failed answer call")
}

func TestGenerateBatchActionsFailureKeepsAnswer(t *testing.T) {
	provider := &stageProvider{actionsRaw: "no json here"}
	g := newTestGenerator(provider, &fakeRetriever{})

	item := Item{Label: "x", WorkflowClass: workflow.ClassOptimizationWorkflow}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	r := results[item]
	assert.Equal(t, "A concrete diagnostic answer.", r.Answer)
	assert.Nil(t, r.Actions)
	assert.Nil(t, r.Details)
	assert.Equal(t, 2, provider.calls, "narrative call is skipped without actions")
}

func TestGenerateBatchBoundsConcurrency(t *testing.T) {
	provider := &stageProvider{}
	g := newTestGenerator(provider, &fakeRetriever{})

	items := make([]Item, 12)
	for i := range items {
		items[i] = Item{Label: fmt.Sprintf("option %d", i), WorkflowClass: workflow.ClassValidationPath}
	}
	results := g.GenerateBatch(context.Background(), uuid.New(), items)

	assert.Len(t, results, 12)
	assert.LessOrEqual(t, provider.maxInFlight, BatchSize)
}

func TestGenerateBatchRetrieverFailureStillGenerates(t *testing.T) {
	provider := &stageProvider{}
	g := newTestGenerator(provider, &fakeRetriever{err: errors.New("index offline")})

	item := Item{Label: "x", WorkflowClass: workflow.ClassValidationPath}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	assert.Equal(t, "A concrete diagnostic answer.", results[item].Answer)
}

func TestActionsFilteredByWordCount(t *testing.T) {
	provider := &stageProvider{actionsRaw: `{"actions": [
		"Short one",
		"This action has far too many words in it",
		"  ",
		"Another fine action"
	]}`}
	g := newTestGenerator(provider, &fakeRetriever{})

	item := Item{Label: "x", WorkflowClass: workflow.ClassDiagnosticEducation}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	assert.Equal(t, []string{"Short one", "Another fine action"}, results[item].Actions)
}

func TestDetailsDropBlankNarratives(t *testing.T) {
	provider := &stageProvider{detailsRaw: `{"narratives": [
		{"action": "Short one", "narrative": "Complete narrative text."},
		{"action": "Another fine action", "narrative": "  "}
	]}`}
	g := newTestGenerator(provider, &fakeRetriever{})

	item := Item{Label: "x", WorkflowClass: workflow.ClassDiagnosticEducation}
	results := g.GenerateBatch(context.Background(), uuid.New(), []Item{item})

	assert.Len(t, results[item].Details, 1)
	assert.Equal(t, "Short one", results[item].Details[0].Label)
}
