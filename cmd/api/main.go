package main

import (
	"log"

	"github.com/helix-ml/tier-router/internal/config"
	"github.com/helix-ml/tier-router/pkg/router"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	r := router.New(cfg)

	log.Println("Starting tier-router server...")
	if err := r.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
