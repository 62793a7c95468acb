// Package service wires the pipeline stages together: chunking,
// embedding, indexing, retrieval and synthesis. One Pipeline owns one
// session's index; callers that need isolation between queries build a
// fresh Pipeline per session.
package service

import (
	"context"
	"fmt"
	"log"

	"docquery/internal/domain"
	"docquery/internal/retriever"
	"docquery/internal/synthesis"
)

// IngestStats summarizes one ingest pass.
type IngestStats struct {
	Documents int
	Chunks    int
}

// Pipeline runs documents end to end: Ingest builds the index, Ask
// answers questions against it.
type Pipeline struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	ret      *retriever.Retriever
	synth    *synthesis.Synthesizer
	audit    *AuditLog
}

// NewPipeline assembles a pipeline from its stages. An audit log of nil
// disables auditing.
func NewPipeline(
	chunker domain.Chunker,
	embedder domain.Embedder,
	store domain.VectorStore,
	ret *retriever.Retriever,
	synth *synthesis.Synthesizer,
	audit *AuditLog,
) *Pipeline {
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		ret:      ret,
		synth:    synth,
		audit:    audit,
	}
}

// Ingest chunks the documents, fits the embedder on the chunk corpus,
// and indexes every chunk vector. It replaces whatever the store held.
func (p *Pipeline) Ingest(ctx context.Context, docs []domain.Document) (IngestStats, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := p.chunker.Chunk(doc)
		if err != nil {
			return IngestStats{}, fmt.Errorf("chunk %s: %w", doc.Source, err)
		}
		chunks = append(chunks, cs...)
	}
	stats := IngestStats{Documents: len(docs), Chunks: len(chunks)}
	if len(chunks) == 0 {
		return stats, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	if err := p.embedder.Prepare(ctx, texts); err != nil {
		return IngestStats{}, fmt.Errorf("prepare embedder: %w", err)
	}

	vectors := make([][]float64, len(chunks))
	for i, c := range chunks {
		vec, err := p.embedder.Embed(ctx, c.Content)
		if err != nil {
			return IngestStats{}, fmt.Errorf("embed chunk %s: %w", c.ChunkID, err)
		}
		vectors[i] = vec
	}

	if err := p.store.Init(p.embedder.Dimension()); err != nil {
		return IngestStats{}, fmt.Errorf("init store: %w", err)
	}
	if err := p.store.Upsert(ctx, chunks, vectors); err != nil {
		return IngestStats{}, fmt.Errorf("index chunks: %w", err)
	}
	return stats, nil
}

// Ask retrieves relevant chunks and synthesizes an answer. The answer
// is always present; the results slice carries the supporting chunks
// for display. Retrieval errors are the only error condition.
func (p *Pipeline) Ask(ctx context.Context, query string, opts retriever.Options) (domain.Answer, []domain.SearchResult, error) {
	results, err := p.ret.Retrieve(ctx, query, opts)
	if err != nil {
		return domain.Answer{}, nil, fmt.Errorf("retrieve: %w", err)
	}
	answer := p.synth.Synthesize(ctx, query, results)
	if p.audit != nil {
		if err := p.audit.Record(query, results, answer); err != nil {
			log.Printf("audit: %v", err)
		}
	}
	return answer, results, nil
}

// ChunkCount reports the size of the current index.
func (p *Pipeline) ChunkCount() int { return p.store.Count() }
