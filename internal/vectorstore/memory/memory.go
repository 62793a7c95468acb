package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"docquery/internal/domain"
	"docquery/internal/vectorstore"
)

// Store is an in-memory vector index using brute-force inner-product search.
// Vectors are L2-normalized on upsert, so scores are cosine similarities.
// There is no mutation API beyond append: a new corpus needs a new Store.
type Store struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// NewStore creates an empty store; Init must be called before Upsert.
func NewStore() *Store { return &Store{} }

// Init sets the vector dimensionality and drops any previous contents.
func (s *Store) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks with their vectors, normalizing each vector.
// Vector count must equal chunk count and every vector must match the
// configured dimension.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, v := range vectors {
		vectorstore.Normalize(v)
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns up to topN chunks by descending inner product with the
// query vector. An empty store returns an empty result without error.
func (s *Store) Search(_ context.Context, vector []float64, topN int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topN <= 0 {
		topN = 5
	}
	if len(s.vectors) == 0 {
		return nil, nil
	}
	results := make([]domain.SearchResult, 0, len(s.vectors))
	for i := range s.vectors {
		results = append(results, domain.SearchResult{
			Chunk: s.chunks[i],
			Score: vectorstore.Dot(s.vectors[i], vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topN > len(results) {
		topN = len(results)
	}
	return results[:topN], nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear drops all vectors and chunks but keeps the dimension.
func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}
