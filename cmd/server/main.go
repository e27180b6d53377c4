package main

import (
	"flag"
	"log"
	"os"

	"github.com/klavins/tender-finder/internal/api"
	"github.com/klavins/tender-finder/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	srv := api.NewServer(cfg)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
