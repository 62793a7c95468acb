package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"docquery/internal/domain"
)

// Store is a minimal REST client to Qdrant, kept behind the same interface
// as the in-memory store for deployments that want the index out of process.
// It assumes cosine distance and creates the collection if missing.
type Store struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client

	mu    sync.Mutex
	count int
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStore creates a Qdrant-backed store.
func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection with cosine distance if it does not exist.
func (s *Store) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 if the collection already exists with this schema.
	return s.putJSON(context.Background(), fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Upsert writes chunks with their vectors; chunk metadata rides along in the
// point payload so retrieval filters keep working against this store.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     fmt.Sprintf("%s:%d", chunks[i].DocumentID, chunks[i].Index),
			"vector": vectors[i],
			"payload": map[string]any{
				"document_id": chunks[i].DocumentID,
				"chunk_id":    chunks[i].ChunkID,
				"index":       chunks[i].Index,
				"content":     chunks[i].Content,
				"metadata":    chunks[i].Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body); err != nil {
		return err
	}
	s.mu.Lock()
	s.count += len(chunks)
	s.mu.Unlock()
	return nil
}

// Search returns up to topN chunks by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float64, topN int) ([]domain.SearchResult, error) {
	if topN <= 0 {
		topN = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topN,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		var payload struct {
			DocumentID string            `json:"document_id"`
			ChunkID    string            `json:"chunk_id"`
			Index      int               `json:"index"`
			Content    string            `json:"content"`
			Metadata   map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: payload.DocumentID,
				ChunkID:    payload.ChunkID,
				Index:      payload.Index,
				Content:    payload.Content,
				Metadata:   payload.Metadata,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

// Count returns the number of chunks upserted through this client.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Clear drops the collection, best effort.
func (s *Store) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err == nil {
		_ = resp.Body.Close()
	}
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
	return nil
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
