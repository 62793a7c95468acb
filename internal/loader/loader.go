// Package loader reads documents from disk into domain.Document values.
// Supported formats are plain text, markdown, PDF, docx and eml. A file
// that fails to load is skipped with a log line so one bad upload never
// blocks a whole directory.
package loader

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docquery/internal/domain"
)

// LoadDir loads every supported file at the top level of dir. The tags
// map is copied into each document's metadata, letting callers attach
// attributes such as user_role at ingest time.
func LoadDir(dir string, tags map[string]string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return LoadFiles(paths, tags)
}

// LoadFiles loads the given files, skipping unsupported extensions and
// unreadable files. It only errors when nothing at all could be loaded
// from a non-empty path list.
func LoadFiles(paths []string, tags map[string]string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, path := range paths {
		doc, err := loadFile(path, tags)
		if err != nil {
			log.Printf("loader: skipping %s: %v", path, err)
			continue
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	if len(paths) > 0 && len(docs) == 0 {
		return nil, fmt.Errorf("%w: no loadable documents among %d files", domain.ErrInvalidInput, len(paths))
	}
	return docs, nil
}

func loadFile(path string, tags map[string]string) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		content string
		err     error
	)
	switch ext {
	case ".txt", ".md":
		var data []byte
		data, err = os.ReadFile(path)
		content = string(data)
	case ".pdf":
		content, err = extractPDF(path)
	case ".docx":
		content, err = extractDocx(path)
	case ".eml":
		content, err = extractEmail(path)
	default:
		log.Printf("loader: unsupported extension %q for %s", ext, path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no text content")
	}

	meta := map[string]string{
		domain.MetaSource:     filepath.Base(path),
		domain.MetaFormat:     strings.TrimPrefix(ext, "."),
		domain.MetaUploadDate: time.Now().Format("2006-01-02"),
	}
	for k, v := range tags {
		meta[k] = v
	}
	return &domain.Document{
		ID:       uuid.NewString(),
		Source:   filepath.Base(path),
		Content:  content,
		Metadata: meta,
	}, nil
}
