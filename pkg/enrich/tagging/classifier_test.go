package tagging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/pkg/llm"
	"leadqualify-be/pkg/retry"
)

// fakeProvider replays canned responses (or errors) in order.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, "", options...)
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no canned response")
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 4, BaseDelay: time.Millisecond}
}

func TestClassifyReturnsValidPairs(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"assignments": [
			{"label": "We book calls by hand", "tags": ["manual_scheduling", "low_risk"]},
			{"label": "Leads go cold before we reply", "tags": ["pipeline_leakage", "critical_risk"]}
		]}`,
	}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), []string{
		"We book calls by hand",
		"Leads go cold before we reply",
		"We book calls by hand", // duplicate collapses
	})

	assert.Len(t, result, 2)
	assert.Equal(t, []string{"manual_scheduling", "low_risk"}, result["we book calls by hand"])
	assert.Equal(t, []string{"pipeline_leakage", "critical_risk"}, result["leads go cold before we reply"])
	assert.Equal(t, 1, provider.calls, "one batch call for deduplicated labels")
}

func TestClassifyDropsInvalidPairs(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"assignments": [
			{"label": "ok option", "tags": ["manual_scheduling", "low_risk"]},
			{"label": "made-up tag", "tags": ["not_a_tag", "low_risk"]},
			{"label": "one tag only", "tags": ["manual_scheduling"]},
			{"label": "swapped order", "tags": ["low_risk", "manual_scheduling"]}
		]}`,
	}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), []string{"ok option", "made-up tag", "one tag only", "swapped order"})

	assert.Len(t, result, 1)
	assert.Contains(t, result, "ok option")
}

func TestClassifyRetriesThenReturnsEmptyMap(t *testing.T) {
	boom := errors.New("service down")
	provider := &fakeProvider{errs: []error{boom, boom, boom, boom}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), []string{"anything"})

	assert.Empty(t, result)
	assert.Equal(t, 4, provider.calls, "initial attempt plus three retries")
}

func TestClassifyRecoversOnRetry(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{errors.New("flaky"), nil},
		responses: []string{
			"",
			`{"assignments": [{"label": "x", "tags": ["unknown_state", "low_risk"]}]}`,
		},
	}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), []string{"x"})

	assert.Len(t, result, 1)
	assert.Equal(t, 2, provider.calls)
}

func TestClassifyMalformedJSONRetried(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"I think these options are about scheduling.",
		`{"assignments": [{"label": "x", "tags": ["scheduling_gap", "low_risk"]}]}`,
	}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), []string{"x"})

	assert.Len(t, result, 1)
	assert.Equal(t, 2, provider.calls)
}

func TestClassifyEmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	result := c.Classify(context.Background(), nil)

	assert.Empty(t, result)
	assert.Zero(t, provider.calls)
}

func TestRepairSkipsSiblingDuplicates(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"assignments": [
			{"label": "Fresh angle", "tags": ["visibility_gap", "low_risk"]},
			{"label": "Existing option", "tags": ["manual_scheduling", "low_risk"]}
		]}`,
	}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	repaired := c.Repair(context.Background(),
		[]entity.Option{{Label: "broken one"}, {Label: "broken two"}},
		[]entity.Option{{Label: "Existing option", Tags: []string{"manual_scheduling", "low_risk"}}},
	)

	assert.Len(t, repaired, 1)
	assert.Equal(t, "Fresh angle", repaired[0].Label)
}

func TestRepairFailureYieldsNothing(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.New("down")}}
	c := NewClassifier(provider, fastPolicy(), logger.NewNop())

	repaired := c.Repair(context.Background(), []entity.Option{{Label: "x"}}, nil)

	assert.Nil(t, repaired)
}

func TestFinalizeQuestionPadsFromOriginal(t *testing.T) {
	original := []entity.Option{
		{Label: "Option A"},
		{Label: "Option B"},
		{Label: "Option C"},
	}
	q := &entity.Question{
		QuestionText: "How do you schedule?",
		Options: []entity.Option{
			{Label: "Option A", Tags: []string{"manual_scheduling", "low_risk"}},
			// Option B and C lost their tags entirely.
		},
	}

	FinalizeQuestion(q, original)

	assert.Len(t, q.Options, 2)
	assert.Equal(t, "Option A", q.Options[0].Label)
	assert.Equal(t, []string{"unknown_state", "low_risk"}, q.Options[1].Tags, "padded option carries the fallback pair")
	for _, opt := range q.Options {
		assert.Len(t, opt.Tags, 2)
		assert.NotEmpty(t, opt.WorkflowClass)
	}
}

func TestFinalizeQuestionTruncatesAtFour(t *testing.T) {
	var opts []entity.Option
	for _, l := range []string{"a", "b", "c", "d", "e", "f"} {
		opts = append(opts, entity.Option{Label: l, Tags: []string{"manual_scheduling", "low_risk"}})
	}
	q := &entity.Question{QuestionText: "q", Options: opts}

	FinalizeQuestion(q, opts)

	assert.Len(t, q.Options, MaxOptions)
	assert.Equal(t, "a", q.Options[0].Label, "truncation keeps original order")
}

func TestFinalizeQuestionDropsInvalidOptions(t *testing.T) {
	q := &entity.Question{
		QuestionText: "q",
		Options: []entity.Option{
			{Label: "valid", Tags: []string{"validated_flow", "low_risk"}},
			{Label: "invalid", Tags: []string{"nonsense"}},
			{Label: "also valid", Tags: []string{"scheduling_gap", "high_risk"}},
		},
	}

	FinalizeQuestion(q, q.Options)

	assert.Len(t, q.Options, 2)
	for _, opt := range q.Options {
		assert.NotEqual(t, "invalid", opt.Label)
	}
}
