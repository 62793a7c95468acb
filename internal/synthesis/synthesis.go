// Package synthesis turns retrieved chunks into a grounded answer. It
// owns prompt assembly, the context character budget, and the contract
// that a query always yields an answer payload: LLM failures become
// error-shaped answers instead of propagating.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"docquery/internal/domain"
	"docquery/internal/llm"
	"docquery/internal/normalize"
)

const (
	// ModeStructured asks the model for a JSON decision object.
	ModeStructured = "structured"
	// ModeFreeform asks for plain prose.
	ModeFreeform = "freeform"

	defaultContextChars = 4000

	noResultsAnswer        = "No relevant information found for your query"
	noResultsJustification = "No matching content retrieved"
)

// Synthesizer renders prompts and interprets completions. A nil
// generator puts it in retrieval-only mode where the top chunk stands
// in for a generated answer.
type Synthesizer struct {
	gen          llm.Generator
	mode         string
	contextChars int
}

func New(gen llm.Generator, mode string, maxContextChars int) *Synthesizer {
	if mode != ModeFreeform {
		mode = ModeStructured
	}
	if maxContextChars <= 0 {
		maxContextChars = defaultContextChars
	}
	return &Synthesizer{gen: gen, mode: mode, contextChars: maxContextChars}
}

// Synthesize produces an answer for the query from the ranked results.
// It never returns an error: empty retrieval, upstream failures and
// unparseable completions all map to answer payloads.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []domain.SearchResult) domain.Answer {
	if len(results) == 0 {
		return domain.Answer{
			Answer:        noResultsAnswer,
			Justification: noResultsJustification,
		}
	}

	sources := uniqueSources(results)
	if s.gen == nil {
		return domain.Answer{
			Answer:        results[0].Chunk.Content,
			Justification: basedOn(len(results)),
			Sources:       sources,
		}
	}

	prompt := s.buildPrompt(query, results)
	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return s.errorAnswer(err, sources)
	}

	if s.mode == ModeFreeform {
		return domain.Answer{
			Answer:        strings.TrimSpace(raw),
			Justification: basedOn(len(results)),
			Sources:       sources,
		}
	}
	return s.structuredAnswer(raw, len(results), sources)
}

func (s *Synthesizer) buildPrompt(query string, results []domain.SearchResult) string {
	contextBlock := BuildContext(results, s.contextChars)
	if s.mode == ModeFreeform {
		return fmt.Sprintf(`Answer the question using only the document sections below.

%s

Question: %q

If the sections do not contain the answer, say so.`, contextBlock, query)
	}
	return fmt.Sprintf(`You are an insurance assistant. Analyze the following policy document sections:

%s

Given this user query:
%q

Return a JSON object with:
- decision: "Approved" or "Rejected"
- amount: payout amount if approved, otherwise "N/A"
- justification: explain your decision
- clauses: list of clause numbers or section headers you based your decision on (e.g., ["5.2(b)", "3.1"])

Respond only with JSON.`, contextBlock, query)
}

// BuildContext joins chunk contents as labelled blocks in rank order,
// dropping the lowest-ranked blocks once the character budget is spent.
// The top-ranked block is always included, truncated if it alone
// exceeds the budget.
func BuildContext(results []domain.SearchResult, budget int) string {
	if budget <= 0 {
		budget = defaultContextChars
	}
	var b strings.Builder
	for i, res := range results {
		name := res.Chunk.Metadata[domain.MetaSource]
		if name == "" {
			name = "unknown"
		}
		block := fmt.Sprintf("[Source: %s]\n%s", name, strings.TrimSpace(res.Chunk.Content))
		sep := 0
		if i > 0 {
			sep = 2
		}
		if b.Len()+sep+len(block) > budget {
			if i == 0 {
				return block[:budget]
			}
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
	}
	return b.String()
}

// structuredAnswer parses a completion that was asked to be JSON,
// repairing it when needed. Completions that cannot be recovered keep
// the raw text as the answer with an error-valued decision.
func (s *Synthesizer) structuredAnswer(raw string, found int, sources []string) domain.Answer {
	obj, err := normalize.Parse(raw)
	if err != nil {
		return domain.Answer{
			Answer:        strings.TrimSpace(raw),
			Justification: "could not parse as structured response",
			Decision:      "Error",
			Amount:        "N/A",
			Sources:       sources,
		}
	}
	ans := domain.Answer{
		Answer:        stringField(obj, "answer"),
		Justification: stringField(obj, "justification"),
		Decision:      stringField(obj, "decision"),
		Amount:        stringField(obj, "amount"),
		Clauses:       stringSlice(obj, "clauses"),
		Sources:       sources,
	}
	if ans.Answer == "" {
		ans.Answer = ans.Justification
	}
	if ans.Answer == "" {
		ans.Answer = strings.TrimSpace(raw)
	}
	if ans.Justification == "" {
		ans.Justification = basedOn(found)
	}
	return ans
}

// errorAnswer converts a generator failure into a payload. The sentinel
// prefix is stripped so the surfaced text reads like the upstream
// condition, e.g. "API Error: 500 Internal Server Error".
func (s *Synthesizer) errorAnswer(err error, sources []string) domain.Answer {
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrUpstreamUnavailable,
		domain.ErrEmptyUpstreamResponse,
		domain.ErrMalformedUpstreamResponse,
	} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	ans := domain.Answer{
		Answer:        msg,
		Justification: "LLM call failed",
		Sources:       sources,
	}
	if s.mode == ModeStructured {
		ans.Decision = "Error"
		ans.Amount = "N/A"
	}
	return ans
}

func basedOn(n int) string {
	return fmt.Sprintf("Based on %d relevant sections", n)
}

func uniqueSources(results []domain.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	var out []string
	for _, res := range results {
		name := res.Chunk.Metadata[domain.MetaSource]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func stringSlice(obj map[string]any, key string) []string {
	list, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
