package advise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRuleOnlyAdvisor builds an advisor with the LLM path disabled.
func newRuleOnlyAdvisor() *Advisor {
	return New(Config{Enabled: false})
}

func TestAdviseEmptyRequest(t *testing.T) {
	a := newRuleOnlyAdvisor()
	assert.Nil(t, a.Advise(context.Background(), Request{}))
}

func TestRuleBasedDebugging(t *testing.T) {
	a := newRuleOnlyAdvisor()
	points := a.Advise(context.Background(), Request{
		Transcript: "We keep seeing an error in the login flow and the bug is intermittent.",
	})

	require.NotEmpty(t, points)
	assert.Equal(t, "debugging", points[0].Category)
	assert.InDelta(t, 0.6, points[0].Confidence, 0.001)
}

func TestRuleBasedPerformance(t *testing.T) {
	a := newRuleOnlyAdvisor()
	points := a.Advise(context.Background(), Request{
		Transcript: "The dashboard is slow and we need to optimize the query layer.",
	})

	require.NotEmpty(t, points)
	assert.Equal(t, "performance", points[0].Category)
}

func TestRuleBasedSnippetAdvice(t *testing.T) {
	a := newRuleOnlyAdvisor()
	points := a.Advise(context.Background(), Request{
		Transcript:   "Let's discuss the payment module.",
		CodeSnippets: []string{"def charge(amount): ..."},
	})

	require.NotEmpty(t, points)
	assert.Equal(t, "refactoring", points[0].Category)
	assert.InDelta(t, 0.5, points[0].Confidence, 0.001)
}

func TestRuleBasedDefault(t *testing.T) {
	a := newRuleOnlyAdvisor()
	points := a.Advise(context.Background(), Request{
		Transcript: "What should we talk about next?",
	})

	require.Len(t, points, 1)
	assert.Equal(t, "general", points[0].Category)
	assert.InDelta(t, 0.4, points[0].Confidence, 0.001)
}

func TestRuleBasedCombines(t *testing.T) {
	a := newRuleOnlyAdvisor()
	points := a.Advise(context.Background(), Request{
		Transcript:   "There's a bug and it's also slow.",
		CodeSnippets: []string{"code"},
	})

	categories := make([]string, len(points))
	for i, p := range points {
		categories[i] = p.Category
	}
	assert.Equal(t, []string{"debugging", "performance", "refactoring"}, categories)
}

func TestParseCompletion(t *testing.T) {
	points := parseCompletion("- First point\n* Second point\n1. Third point\n\n- Fourth point")

	require.Len(t, points, 3)
	assert.Equal(t, "First point", points[0].Text)
	assert.Equal(t, "Second point", points[1].Text)
	assert.Equal(t, "Third point", points[2].Text)
	for _, p := range points {
		assert.Equal(t, "llm", p.Category)
	}
}
