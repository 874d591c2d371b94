package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/bwight-dev/turtle-trader-sub001/internal/di"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// .env is optional; secrets usually come from the real environment.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s audit=%s markets=%d", cfg.Environment, cfg.Audit.Backend, len(cfg.Markets))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
