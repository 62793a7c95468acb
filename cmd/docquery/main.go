package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docquery/internal/config"
	"docquery/internal/loader"
	"docquery/internal/service"
	"docquery/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, role string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docquery/config.yaml if not provided)")
	flag.StringVar(&role, "role", "", "user_role tag applied to every loaded document")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docquery [--config=config.yaml] [--role=agent] file1.txt [file2.pdf ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tags := map[string]string{}
	if role != "" {
		tags["user_role"] = role
	}
	docs, err := loader.LoadFiles(inputs, tags)
	if err != nil {
		log.Fatalf("failed to load documents: %v", err)
	}

	audit, err := service.NewAuditLog(cfg.Server.AuditLog, os.Getenv("USER"))
	if err != nil {
		log.Fatalf("failed to open audit log: %v", err)
	}

	pipeline, err := service.BuildPipeline(cfg, audit)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	stats, err := pipeline.Ingest(context.Background(), docs)
	if err != nil {
		log.Fatalf("failed to ingest documents: %v", err)
	}

	summary := fmt.Sprintf("%d documents, %d chunks indexed", stats.Documents, stats.Chunks)
	p := tea.NewProgram(tui.New(pipeline, summary), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
