package domain

import "context"

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus; the same
// instance must embed both the indexed chunks and the queries of a session,
// otherwise scores are meaningless.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore holds vectors and supports similarity search. Stores are
// scoped to one session: built once from a corpus, queried, then discarded.
type VectorStore interface {
	Init(dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topN int) ([]SearchResult, error)
	Count() int
	Clear(ctx context.Context) error
}
