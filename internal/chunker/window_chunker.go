package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"docquery/internal/domain"
)

// WindowChunker splits text into fixed-size character windows with overlap
// between consecutive windows of the same document.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a chunker producing windows of size characters
// with the given overlap. The overlap must be smaller than the window size,
// so that chunking always terminates and covers the whole document.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrInvalidInput, overlap, size)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk walks the document text left to right in steps of size-overlap.
// The remainder shorter than one window becomes the final chunk; a document
// shorter than one window yields exactly one chunk. Each chunk gets its own
// copy of the document metadata so provenance survives splitting.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	runes := []rune(document.Content)
	step := c.size - c.overlap

	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(len(chunks)),
			Index:      len(chunks),
			Content:    string(runes[start:end]),
			Metadata:   copyMeta(document.Metadata),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
