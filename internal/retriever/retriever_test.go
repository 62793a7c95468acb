package retriever

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/domain"
	"docquery/internal/vectorstore/memory"
)

type stubEmbedder struct {
	vecs map[string][]float64
	dim  int
}

func (s *stubEmbedder) Name() string                          { return "stub" }
func (s *stubEmbedder) Prepare(context.Context, []string) error { return nil }
func (s *stubEmbedder) Dimension() int                        { return s.dim }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	v, ok := s.vecs[text]
	if !ok {
		return make([]float64, s.dim), nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// vecAt returns a 2D unit vector at the given angle (radians) from the
// query axis, so its cosine similarity to the query {1,0} is cos(angle).
func vecAt(angle float64) []float64 {
	return []float64{math.Cos(angle), math.Sin(angle)}
}

func buildIndex(t *testing.T, chunks []domain.Chunk, vectors [][]float64) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Init(2))
	require.NoError(t, store.Upsert(context.Background(), chunks, vectors))
	return store
}

func TestRetrieve_ThresholdAndCap(t *testing.T) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		{ChunkID: "c1", Content: "one"},
		{ChunkID: "c2", Content: "two"},
		{ChunkID: "c3", Content: "three"},
		{ChunkID: "c4", Content: "four"},
	}
	// Scores against the query: 1.0, ~0.95, ~0.7, ~0.1
	vectors := [][]float64{vecAt(0), vecAt(0.3), vecAt(0.8), vecAt(1.47)}
	store := buildIndex(t, chunks, vectors)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}

	r := New(emb, store, 2, 0.4)
	results, err := r.Retrieve(ctx, "q", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2, "capped at k")
	assert.Equal(t, "c1", results[0].Chunk.ChunkID)
	assert.Equal(t, "c2", results[1].Chunk.ChunkID)

	// With a bigger k, the sub-threshold candidate still stays out.
	results, err = r.Retrieve(ctx, "q", Options{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, 0.4)
	}
}

func TestRetrieve_ExplicitZeroThreshold(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{{ChunkID: "c1"}, {ChunkID: "c2"}},
		[][]float64{vecAt(0), vecAt(1.47)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 5, 0.4)

	zero := 0.0
	results, err := r.Retrieve(ctx, "q", Options{Threshold: &zero})
	require.NoError(t, err)
	assert.Len(t, results, 2, "threshold 0 admits everything non-negative")
}

func TestRetrieve_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{{ChunkID: "c1"}, {ChunkID: "c2"}, {ChunkID: "c3"}},
		[][]float64{vecAt(0.2), vecAt(0.1), vecAt(0.5)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 3, 0.4)

	first, err := r.Retrieve(ctx, "q", Options{})
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, "q", Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieve_EmptyQueryAndEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	emb := &stubEmbedder{dim: 2}

	empty := memory.NewStore()
	require.NoError(t, empty.Init(2))
	r := New(emb, empty, 5, 0.4)

	results, err := r.Retrieve(ctx, "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, results, "empty corpus is a normal outcome")

	store := buildIndex(t, []domain.Chunk{{ChunkID: "c1"}}, [][]float64{vecAt(0)})
	r = New(emb, store, 5, 0.4)
	results, err = r.Retrieve(ctx, "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results, "blank query is a normal outcome")
}

func TestRetrieve_FileNameFilterIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{
			{ChunkID: "c1", Metadata: map[string]string{domain.MetaSource: "Policy_2023.PDF"}},
			{ChunkID: "c2", Metadata: map[string]string{domain.MetaSource: "claims.txt"}},
		},
		[][]float64{vecAt(0), vecAt(0.1)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 5, 0.4)

	results, err := r.Retrieve(ctx, "q", Options{Filters: domain.Filters{FileName: "policy"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ChunkID)
}

func TestRetrieve_UserRoleFilterIsExact(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{
			{ChunkID: "c1", Metadata: map[string]string{domain.MetaUserRole: "agent"}},
			{ChunkID: "c2", Metadata: map[string]string{domain.MetaUserRole: "agents"}},
			{ChunkID: "c3", Metadata: map[string]string{}},
		},
		[][]float64{vecAt(0), vecAt(0.1), vecAt(0.2)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 5, 0.4)

	results, err := r.Retrieve(ctx, "q", Options{Filters: domain.Filters{UserRole: "agent"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ChunkID)
}

func TestRetrieve_DateFilterIsPermissive(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{
			{ChunkID: "dated-in", Metadata: map[string]string{domain.MetaUploadDate: "2023-06-15"}},
			{ChunkID: "dated-out", Metadata: map[string]string{domain.MetaUploadDate: "2024-02-01"}},
			{ChunkID: "undated", Metadata: map[string]string{}},
			{ChunkID: "garbage", Metadata: map[string]string{domain.MetaUploadDate: "not a date"}},
		},
		[][]float64{vecAt(0), vecAt(0.1), vecAt(0.2), vecAt(0.3)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 5, 0.4)

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	results, err := r.Retrieve(ctx, "q", Options{Filters: domain.Filters{DateFrom: &from, DateTo: &to}})
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Chunk.ChunkID)
	}
	assert.Contains(t, ids, "dated-in")
	assert.Contains(t, ids, "undated", "chunks without a date pass through")
	assert.Contains(t, ids, "garbage", "unparseable dates pass through")
	assert.NotContains(t, ids, "dated-out")
}

func TestRetrieve_OverfetchFillsAfterFiltering(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{
			{ChunkID: "c1", Metadata: map[string]string{domain.MetaSource: "other.txt"}},
			{ChunkID: "c2", Metadata: map[string]string{domain.MetaSource: "policy.pdf"}},
			{ChunkID: "c3", Metadata: map[string]string{domain.MetaSource: "policy.pdf"}},
		},
		[][]float64{vecAt(0), vecAt(0.2), vecAt(0.4)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 1, 0.4)

	// The best candidate is filtered out; over-fetch leaves headroom so the
	// next qualifying candidate still fills k.
	results, err := r.Retrieve(ctx, "q", Options{Filters: domain.Filters{FileName: "policy"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].Chunk.ChunkID)
}

func TestRetrieve_DeduplicatesByChunkID(t *testing.T) {
	ctx := context.Background()
	store := buildIndex(t,
		[]domain.Chunk{{ChunkID: "dup"}, {ChunkID: "dup"}, {ChunkID: "c2"}},
		[][]float64{vecAt(0), vecAt(0.1), vecAt(0.2)},
	)
	emb := &stubEmbedder{dim: 2, vecs: map[string][]float64{"q": {1, 0}}}
	r := New(emb, store, 5, 0.4)

	results, err := r.Retrieve(ctx, "q", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "dup", results[0].Chunk.ChunkID)
	assert.Equal(t, "c2", results[1].Chunk.ChunkID)
}
