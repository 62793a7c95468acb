package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"docquery/internal/config"
	"docquery/internal/metadata"
	"docquery/internal/server"
	"docquery/internal/service"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docquery/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address override, e.g. :8080")
	flag.Parse()

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
	if addr != "" {
		cfg.Server.Addr = addr
	}

	meta, err := metadata.Open(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("failed to open metadata store: %v", err)
	}
	defer meta.Close()

	audit, err := service.NewAuditLog(cfg.Server.AuditLog, "server")
	if err != nil {
		log.Fatalf("failed to open audit log: %v", err)
	}

	factory := func() (*service.Pipeline, error) {
		return service.BuildPipeline(cfg, audit)
	}
	srv := server.New(cfg, meta, factory)

	log.Printf("listening on %s", cfg.Server.Addr)
	if err := srv.Router().Run(cfg.Server.Addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
