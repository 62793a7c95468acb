package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/domain"
)

func TestNewWindowChunker_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	_, err := NewWindowChunker(100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewWindowChunker(100, 150)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWindowChunker_TwoWindows(t *testing.T) {
	// 1500 characters, size 1000, overlap 100: two chunks, the second
	// starting at offset 900.
	text := strings.Repeat("a", 900) + strings.Repeat("b", 600)
	c, err := NewWindowChunker(1000, 100)
	require.NoError(t, err)

	chunks, err := c.Chunk(domain.Document{ID: "d1", Content: text})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Len(t, chunks[0].Content, 1000)
	assert.Equal(t, text[900:], chunks[1].Content)
	assert.Equal(t, "d1:0", chunks[0].ChunkID)
	assert.Equal(t, "d1:1", chunks[1].ChunkID)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestWindowChunker_ShortDocumentIsOneChunk(t *testing.T) {
	c, err := NewWindowChunker(1000, 100)
	require.NoError(t, err)

	chunks, err := c.Chunk(domain.Document{ID: "d1", Content: "short text"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Content)
}

func TestWindowChunker_EmptyDocument(t *testing.T) {
	c, err := NewWindowChunker(1000, 100)
	require.NoError(t, err)

	chunks, err := c.Chunk(domain.Document{ID: "d1", Content: "  \n "})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWindowChunker_CoversWholeText(t *testing.T) {
	// Consecutive chunks overlap, so stitching them back together with the
	// overlap removed must reproduce the original text with no gaps.
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 120)
	for _, tc := range []struct{ size, overlap int }{
		{1000, 100}, {500, 50}, {128, 0}, {100, 99},
	} {
		c, err := NewWindowChunker(tc.size, tc.overlap)
		require.NoError(t, err)

		chunks, err := c.Chunk(domain.Document{ID: "d", Content: text})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		var rebuilt strings.Builder
		for i, ch := range chunks {
			content := []rune(ch.Content)
			if i > 0 {
				content = content[tc.overlap:]
			}
			rebuilt.WriteString(string(content))
		}
		assert.Equal(t, text, rebuilt.String(), "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestWindowChunker_MetadataCopiedPerChunk(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	doc := domain.Document{
		ID:       "d1",
		Content:  strings.Repeat("x", 30),
		Metadata: map[string]string{domain.MetaSource: "policy.pdf", domain.MetaUserRole: "agent"},
	}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata[domain.MetaSource] = "mutated"
	assert.Equal(t, "policy.pdf", chunks[1].Metadata[domain.MetaSource], "chunks must not share one metadata map")
	assert.Equal(t, "agent", chunks[1].Metadata[domain.MetaUserRole])
}
