package service

import (
	"fmt"
	"os"
	"time"

	"docquery/internal/chunker"
	"docquery/internal/config"
	"docquery/internal/domain"
	"docquery/internal/embedding/openai"
	"docquery/internal/embedding/tfidf"
	llmopenai "docquery/internal/llm/openai"
	"docquery/internal/retriever"
	"docquery/internal/synthesis"
	"docquery/internal/vectorstore/memory"
	"docquery/internal/vectorstore/qdrant"
)

// BuildPipeline assembles a fresh pipeline from configuration. Every
// call makes a new embedder and store, so pipelines built per session
// never share index state.
func BuildPipeline(cfg *config.AppConfig, audit *AuditLog) (*Pipeline, error) {
	ch, err := chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	synth, err := buildSynthesizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	ret := retriever.New(embedder, store, cfg.Retrieval.TopK, cfg.Retrieval.SimilarityThreshold)
	return NewPipeline(ch, embedder, store, ret, synth, audit), nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		return openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func buildStore(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStore(), nil
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		if qc == nil || qc.URL == "" {
			return nil, fmt.Errorf("qdrant store requires a url")
		}
		return qdrant.NewStore(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.VectorStore.Type)
	}
}

func buildSynthesizer(cfg *config.AppConfig) (*synthesis.Synthesizer, error) {
	switch cfg.LLM.Type {
	case "":
		return synthesis.New(nil, cfg.LLM.Mode, cfg.LLM.MaxContextChars), nil
	case "openai":
		gen, err := llmopenai.New(llmopenai.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
			Model:       cfg.LLM.Model,
			Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return synthesis.New(gen, cfg.LLM.Mode, cfg.LLM.MaxContextChars), nil
	default:
		return nil, fmt.Errorf("unknown llm type %q", cfg.LLM.Type)
	}
}
