// Package normalize turns raw model output into valid JSON. Models that
// are asked for JSON routinely return almost-JSON: fenced code blocks,
// unquoted keys, bare scalar values, or a naked object body. The repair
// here is purely heuristic string surgery plus a reparse; it never calls
// back to the model.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"docquery/internal/domain"
)

var (
	fenceRe   = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_\-]*)\s*:`)
	bareValRe = regexp.MustCompile(`:\s*([^"\s,{\[}\]][^,}\]]*)`)
)

// Repair applies a fixed sequence of textual fixes to almost-JSON:
// strip markdown fences, wrap a naked key-value body in braces, quote
// bare keys, and quote bare scalar values. The result is not guaranteed
// to parse; callers must reparse and fall back themselves.
func Repair(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if !strings.Contains(s, "{") {
		s = "{" + s + "}"
	}
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = quoteBareValues(s)
	return s
}

// quoteBareValues wraps unquoted scalar values in double quotes. Bare
// numbers are quoted too, so repaired documents carry numbers as
// strings; true, false and null are left alone.
func quoteBareValues(s string) string {
	return bareValRe.ReplaceAllStringFunc(s, func(m string) string {
		colon := strings.Index(m, ":")
		val := strings.TrimSpace(m[colon+1:])
		switch val {
		case "true", "false", "null":
			return m
		}
		return `: "` + val + `"`
	})
}

// Parse returns the object encoded by raw, repairing it first if a
// strict parse fails. Unrepairable input yields ErrParseFailure.
func Parse(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}
	repaired := Repair(raw)
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return obj, nil
}

// Normalize always produces a valid JSON document. Input that parses
// as-is passes through reserialized; repairable input is repaired; the
// rest is wrapped verbatim in a fallback envelope so downstream
// consumers can still treat every response as JSON.
func Normalize(raw string) string {
	obj, err := Parse(raw)
	if err != nil {
		fallback := map[string]string{
			"answer":        strings.TrimSpace(raw),
			"justification": "could not parse as structured response",
		}
		out, _ := json.Marshal(fallback)
		return string(out)
	}
	out, _ := json.Marshal(obj)
	return string(out)
}
