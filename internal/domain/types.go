package domain

import "time"

// Metadata keys carried from documents onto their chunks.
const (
	MetaSource     = "source"
	MetaFormat     = "format"
	MetaUploadDate = "upload_date"
	MetaUserRole   = "user_role"
	MetaPages      = "pages"
)

// Document is raw text plus provenance attributes, produced by the loader.
// Immutable once created; it lives for the duration of one retrieval session.
type Document struct {
	ID       string
	Source   string
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded substring of a document carrying a copy of the
// document's metadata. The same type is used end to end: chunker output,
// index rows and retrieval results all share it.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Index      int
	Content    string
	Metadata   map[string]string
}

// SearchResult is a chunk annotated with its cosine similarity to the query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Filters narrow retrieval candidates. All set fields must match (AND).
// Date bounds are inclusive; chunks without a parseable upload date pass
// date filters rather than being hidden by inconsistent metadata.
type Filters struct {
	FileName string
	UserRole string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Empty reports whether no filter field is set.
func (f Filters) Empty() bool {
	return f.FileName == "" && f.UserRole == "" && f.DateFrom == nil && f.DateTo == nil
}

// Answer is the synthesized reply for one query. Decision, Amount and
// Clauses are populated only in structured mode.
type Answer struct {
	Answer        string   `json:"answer"`
	Justification string   `json:"justification"`
	Decision      string   `json:"decision,omitempty"`
	Amount        string   `json:"amount,omitempty"`
	Clauses       []string `json:"clauses,omitempty"`
	Sources       []string `json:"sources,omitempty"`
}
