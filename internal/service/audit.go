package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"docquery/internal/domain"
)

// AuditLog appends one JSON line per answered query. The file format is
// append-only JSONL so external tooling can tail it.
type AuditLog struct {
	mu       sync.Mutex
	path     string
	username string
}

type auditEntry struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Username  string        `json:"username"`
	Query     string        `json:"query"`
	ChunkIDs  []string      `json:"chunk_ids"`
	Response  domain.Answer `json:"response"`
}

// NewAuditLog creates the parent directory eagerly so the first Record
// does not fail on a missing path. Empty username defaults to anonymous.
func NewAuditLog(path, username string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	if username == "" {
		username = "anonymous"
	}
	return &AuditLog{path: path, username: username}, nil
}

// Record appends one entry. Opens and closes the file per call; audit
// volume is one line per query, so the simplicity wins over a held fd.
func (a *AuditLog) Record(query string, results []domain.SearchResult, answer domain.Answer) error {
	ids := make([]string, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Chunk.ChunkID)
	}
	entry := auditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Username:  a.username,
		Query:     query,
		ChunkIDs:  ids,
		Response:  answer,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
