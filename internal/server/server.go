// Package server exposes the pipeline over HTTP. Every query builds a
// fresh retrieval session from the upload directory, so concurrent
// requests never share a mutable index.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docquery/internal/config"
	"docquery/internal/domain"
	"docquery/internal/loader"
	"docquery/internal/metadata"
	"docquery/internal/retriever"
	"docquery/internal/service"
)

// SessionFactory builds a pipeline for one request. Injected so tests
// can swap in a deterministic pipeline.
type SessionFactory func() (*service.Pipeline, error)

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg        *config.AppConfig
	meta       *metadata.Store
	newSession SessionFactory
	downloads  *http.Client
}

func New(cfg *config.AppConfig, meta *metadata.Store, newSession SessionFactory) *Server {
	return &Server{
		cfg:        cfg,
		meta:       meta,
		newSession: newSession,
		downloads:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Router registers all routes on a fresh gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", s.handleInfo)
	r.GET("/health", s.handleHealth)
	r.POST("/upload", s.handleUpload)
	r.GET("/files", s.handleListFiles)
	r.POST("/query", s.handleQuery)
	r.POST("/api/v1/run", s.handleRun)
	return r
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "docquery",
		"endpoints": []string{
			"POST /upload", "GET /files", "POST /query", "POST /api/v1/run", "GET /health",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	user := c.PostForm("user")
	if user == "" {
		user = "anonymous"
	}

	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create upload dir"})
		return
	}
	dest := filepath.Join(s.cfg.Server.UploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}

	sum, err := metadata.FileSHA256(dest)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash file"})
		return
	}
	rec := metadata.Record{
		ID:          uuid.NewString(),
		Filename:    filepath.Base(file.Filename),
		User:        user,
		UploadTime:  time.Now(),
		SHA256:      sum,
		FileSize:    file.Size,
		ContentType: file.Header.Get("Content-Type"),
	}
	if err := s.meta.Save(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save metadata"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "file uploaded", "file": rec})
}

func (s *Server) handleListFiles(c *gin.Context) {
	records, err := s.meta.List(c.Request.Context(), c.Query("user"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list files"})
		return
	}
	if records == nil {
		records = []metadata.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"files": records, "count": len(records)})
}

type queryFilters struct {
	FileName string `json:"file_name"`
	UserRole string `json:"user_role"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type queryRequest struct {
	Query               string       `json:"query"`
	K                   int          `json:"k"`
	SimilarityThreshold *float64     `json:"similarity_threshold"`
	Filters             queryFilters `json:"filters"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query text is required"})
		return
	}

	docs, err := s.loadUploads()
	if err != nil || len(docs) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"answer":          "No documents found in the system",
			"relevant_chunks": []string{},
			"justification":   "No documents available for querying",
		})
		return
	}

	pipeline, err := s.newSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Processing error: %v", err)})
		return
	}
	if _, err := pipeline.Ingest(c.Request.Context(), docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Processing error: %v", err)})
		return
	}

	opts := retriever.Options{
		TopK:      req.K,
		Threshold: req.SimilarityThreshold,
		Filters:   parseFilters(req.Filters),
	}
	answer, results, err := pipeline.Ask(c.Request.Context(), req.Query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Processing error: %v", err)})
		return
	}

	k := req.K
	if k <= 0 {
		k = s.cfg.Retrieval.TopK
	}
	threshold := s.cfg.Retrieval.SimilarityThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":             answer.Answer,
		"justification":      answer.Justification,
		"decision":           answer.Decision,
		"amount":             answer.Amount,
		"sources":            answer.Sources,
		"relevant_chunks":    chunkTexts(results, 3),
		"total_chunks_found": len(results),
		"parameters": gin.H{
			"k":                    k,
			"similarity_threshold": threshold,
		},
	})
}

type runRequest struct {
	Documents           string   `json:"documents"`
	Questions           []string `json:"questions"`
	K                   int      `json:"k"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

type runAnswer struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	RelevantChunks []string `json:"relevant_chunks"`
	Confidence     float64  `json:"confidence"`
}

// handleRun downloads a PDF by URL and answers a batch of questions
// against it in one ephemeral session.
func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Documents == "" || len(req.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing documents URL or questions"})
		return
	}

	tmpDir, err := os.MkdirTemp("", "docquery-run-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create temp dir"})
		return
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "document.pdf")
	if err := s.download(req.Documents, pdfPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, err := loader.LoadFiles([]string{pdfPath}, nil)
	if err != nil || len(docs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No content extracted from PDF"})
		return
	}

	pipeline, err := s.newSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Processing error: %v", err)})
		return
	}
	if _, err := pipeline.Ingest(c.Request.Context(), docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Processing error: %v", err)})
		return
	}

	k := req.K
	if k <= 0 {
		k = s.cfg.Retrieval.TopK
	}
	answers := make([]runAnswer, 0, len(req.Questions))
	for _, question := range req.Questions {
		opts := retriever.Options{TopK: k, Threshold: req.SimilarityThreshold}
		answer, results, err := pipeline.Ask(c.Request.Context(), question, opts)
		if err != nil {
			log.Printf("run: question %q: %v", question, err)
			answers = append(answers, runAnswer{
				Question:       question,
				Answer:         "Processing error",
				RelevantChunks: []string{},
			})
			continue
		}
		confidence := float64(len(results)) / float64(k)
		if confidence > 1 {
			confidence = 1
		}
		answers = append(answers, runAnswer{
			Question:       question,
			Answer:         answer.Answer,
			RelevantChunks: chunkTexts(results, 3),
			Confidence:     confidence,
		})
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (s *Server) download(url, dest string) error {
	resp, err := s.downloads.Get(url)
	if err != nil {
		return fmt.Errorf("could not download document: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("could not download document, status %d", resp.StatusCode)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("could not store document: %v", err)
	}
	defer f.Close()
	if _, err := f.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("could not store document: %v", err)
	}
	return nil
}

func (s *Server) loadUploads() ([]domain.Document, error) {
	if _, err := os.Stat(s.cfg.Server.UploadDir); err != nil {
		return nil, nil
	}
	return loader.LoadDir(s.cfg.Server.UploadDir, nil)
}

func parseFilters(f queryFilters) domain.Filters {
	out := domain.Filters{FileName: f.FileName, UserRole: f.UserRole}
	if t, ok := parseDate(f.DateFrom); ok {
		out.DateFrom = &t
	}
	if t, ok := parseDate(f.DateTo); ok {
		out.DateTo = &t
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func chunkTexts(results []domain.SearchResult, limit int) []string {
	out := make([]string, 0, limit)
	for i, res := range results {
		if i >= limit {
			break
		}
		out = append(out, res.Chunk.Content)
	}
	return out
}
