package domain

import "errors"

// Error taxonomy. Configuration errors fail fast; LLM-interaction errors are
// caught at the synthesis boundary and turned into answer payloads. An empty
// retrieval result is a normal outcome and has no error at all.
var (
	// ErrInvalidInput marks bad configuration, e.g. overlap >= chunk size.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks an unreachable or non-2xx LLM endpoint.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrEmptyUpstreamResponse marks a 2xx reply with no content.
	ErrEmptyUpstreamResponse = errors.New("empty upstream response")

	// ErrMalformedUpstreamResponse marks a reply that does not match the
	// expected schema.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")

	// ErrParseFailure marks a structured answer that could not be recovered
	// even after repair.
	ErrParseFailure = errors.New("parse failure")
)
