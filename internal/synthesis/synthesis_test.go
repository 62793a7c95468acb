package synthesis

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docquery/internal/domain"
)

type fakeGen struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeGen) Name() string { return "fake" }

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func result(source, content string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ChunkID:  source + ":" + content[:min(4, len(content))],
			Content:  content,
			Metadata: map[string]string{domain.MetaSource: source},
		},
		Score: score,
	}
}

func TestSynthesize_EmptyResultsSkipsGenerator(t *testing.T) {
	gen := &fakeGen{reply: "should not be used"}
	s := New(gen, ModeStructured, 0)

	ans := s.Synthesize(context.Background(), "any question", nil)
	assert.Equal(t, "No relevant information found for your query", ans.Answer)
	assert.Equal(t, "No matching content retrieved", ans.Justification)
	assert.Zero(t, gen.calls, "generator must not be called without context")
}

func TestSynthesize_StructuredHappyPath(t *testing.T) {
	gen := &fakeGen{reply: `{"decision": "Approved", "amount": "5000", "justification": "covered under clause 3.1", "clauses": ["3.1"]}`}
	s := New(gen, ModeStructured, 0)

	results := []domain.SearchResult{
		result("policy.pdf", "clause 3.1 covers surgery", 0.9),
		result("claims.txt", "claims are filed monthly", 0.7),
	}
	ans := s.Synthesize(context.Background(), "is surgery covered?", results)

	assert.Equal(t, "Approved", ans.Decision)
	assert.Equal(t, "5000", ans.Amount)
	assert.Equal(t, "covered under clause 3.1", ans.Justification)
	assert.Equal(t, []string{"3.1"}, ans.Clauses)
	assert.Equal(t, []string{"policy.pdf", "claims.txt"}, ans.Sources)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompt, "[Source: policy.pdf]")
	assert.Contains(t, gen.prompt, "Respond only with JSON")
}

func TestSynthesize_RepairsAlmostJSON(t *testing.T) {
	gen := &fakeGen{reply: "```json\n{decision: Approved, amount: 5000, justification: fine}\n```"}
	s := New(gen, ModeStructured, 0)

	ans := s.Synthesize(context.Background(), "q", []domain.SearchResult{result("a.txt", "text", 0.9)})
	assert.Equal(t, "Approved", ans.Decision)
	assert.Equal(t, "5000", ans.Amount)
}

func TestSynthesize_UnparseableKeepsRawText(t *testing.T) {
	gen := &fakeGen{reply: `I think so, but {the claim: is "odd`}
	s := New(gen, ModeStructured, 0)

	ans := s.Synthesize(context.Background(), "q", []domain.SearchResult{result("a.txt", "text", 0.9)})
	assert.Equal(t, "Error", ans.Decision)
	assert.Equal(t, "N/A", ans.Amount)
	assert.Contains(t, ans.Answer, "I think so")
	assert.Equal(t, "could not parse as structured response", ans.Justification)
}

func TestSynthesize_UpstreamErrorBecomesPayload(t *testing.T) {
	gen := &fakeGen{err: fmt.Errorf("%w: API Error: 500 Internal Server Error", domain.ErrUpstreamUnavailable)}
	s := New(gen, ModeStructured, 0)

	ans := s.Synthesize(context.Background(), "q", []domain.SearchResult{result("a.txt", "text", 0.9)})
	assert.Equal(t, "API Error: 500 Internal Server Error", ans.Answer)
	assert.Equal(t, "LLM call failed", ans.Justification)
	assert.Equal(t, "Error", ans.Decision)
	assert.Equal(t, "N/A", ans.Amount)
}

func TestSynthesize_FreeformJustification(t *testing.T) {
	gen := &fakeGen{reply: "Surgery is covered."}
	s := New(gen, ModeFreeform, 0)

	results := []domain.SearchResult{
		result("a.txt", "one", 0.9),
		result("b.txt", "two", 0.8),
		result("a.txt", "three", 0.7),
	}
	ans := s.Synthesize(context.Background(), "q", results)
	assert.Equal(t, "Surgery is covered.", ans.Answer)
	assert.Equal(t, "Based on 3 relevant sections", ans.Justification)
	assert.Equal(t, []string{"a.txt", "b.txt"}, ans.Sources, "sources deduplicated in rank order")
}

func TestSynthesize_RetrievalOnlyMode(t *testing.T) {
	s := New(nil, ModeFreeform, 0)
	ans := s.Synthesize(context.Background(), "q", []domain.SearchResult{result("a.txt", "top chunk text", 0.9)})
	assert.Equal(t, "top chunk text", ans.Answer)
	assert.Equal(t, "Based on 1 relevant sections", ans.Justification)
}

func TestBuildContext_BudgetDropsLowestRanked(t *testing.T) {
	long := strings.Repeat("x", 120)
	results := []domain.SearchResult{
		result("a.txt", long, 0.9),
		result("b.txt", long, 0.8),
		result("c.txt", long, 0.7),
	}
	out := BuildContext(results, 300)
	assert.Contains(t, out, "[Source: a.txt]")
	assert.Contains(t, out, "[Source: b.txt]")
	assert.NotContains(t, out, "[Source: c.txt]", "lowest-ranked block dropped first")
}

func TestBuildContext_TruncatesSingleOversizedBlock(t *testing.T) {
	results := []domain.SearchResult{result("a.txt", strings.Repeat("y", 500), 0.9)}
	out := BuildContext(results, 100)
	assert.Len(t, out, 100)
	assert.True(t, strings.HasPrefix(out, "[Source: a.txt]"))
}

func TestBuildContext_UnknownSourceLabel(t *testing.T) {
	results := []domain.SearchResult{{Chunk: domain.Chunk{Content: "text"}, Score: 0.9}}
	out := BuildContext(results, 0)
	assert.Contains(t, out, "[Source: unknown]")
}
