package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docquery/internal/domain"
	"docquery/internal/vectorstore"
)

// Options override the retriever defaults for one query. A nil Threshold
// uses the configured default; zero is a valid explicit threshold.
type Options struct {
	TopK      int
	Threshold *float64
	Filters   domain.Filters
}

// Retriever embeds queries and searches the vector store, applying a
// similarity floor and metadata filters. The embedder must be the same
// instance that embedded the indexed corpus.
type Retriever struct {
	embedder         domain.Embedder
	store            domain.VectorStore
	defaultTopK      int
	defaultThreshold float64
}

// New creates a retriever with the given per-session defaults.
func New(embedder domain.Embedder, store domain.VectorStore, topK int, threshold float64) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if threshold < 0 || threshold > 1 {
		threshold = 0.4
	}
	return &Retriever{
		embedder:         embedder,
		store:            store,
		defaultTopK:      topK,
		defaultThreshold: threshold,
	}
}

// Retrieve returns up to k chunks scoring at least the similarity threshold,
// in descending score order, deduplicated, with all filters applied
// conjunctively. An empty query or an empty corpus yields an empty result,
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	corpus := r.store.Count()
	if corpus == 0 {
		return nil, nil
	}

	k := opts.TopK
	if k <= 0 {
		k = r.defaultTopK
	}
	threshold := r.defaultThreshold
	if opts.Threshold != nil && *opts.Threshold >= 0 && *opts.Threshold <= 1 {
		threshold = *opts.Threshold
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vectorstore.Normalize(vec)

	// Over-fetch to leave headroom for the threshold and filters.
	fetch := 3 * k
	if fetch > corpus {
		fetch = corpus
	}
	candidates, err := r.store.Search(ctx, vec, fetch)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	seen := make(map[string]struct{}, k)
	results := make([]domain.SearchResult, 0, k)
	for _, cand := range candidates {
		if cand.Chunk.ChunkID == "" {
			// Sentinel entry with no corresponding vector.
			continue
		}
		if cand.Score < threshold {
			// Candidates arrive in descending score order.
			break
		}
		if !matches(cand.Chunk, opts.Filters) {
			continue
		}
		if _, dup := seen[cand.Chunk.ChunkID]; dup {
			continue
		}
		seen[cand.Chunk.ChunkID] = struct{}{}
		results = append(results, cand)
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// matches applies all set filters conjunctively. Chunks without a parseable
// upload date pass date filters: inconsistent metadata must not silently
// hide legitimate content.
func matches(chunk domain.Chunk, f domain.Filters) bool {
	if f.Empty() {
		return true
	}
	if f.FileName != "" {
		source := strings.ToLower(chunk.Metadata[domain.MetaSource])
		if !strings.Contains(source, strings.ToLower(f.FileName)) {
			return false
		}
	}
	if f.UserRole != "" && chunk.Metadata[domain.MetaUserRole] != f.UserRole {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if date, ok := parseDate(chunk.Metadata[domain.MetaUploadDate]); ok {
			if f.DateFrom != nil && date.Before(*f.DateFrom) {
				return false
			}
			if f.DateTo != nil && date.After(*f.DateTo) {
				return false
			}
		}
	}
	return true
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
