package main

import (
	"flag"
	"log"
	"os"

	"CreditRisk/internal/di"
	"CreditRisk/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s model=%s backend=%s calibration=%s",
		cfg.Environment, cfg.Model.Name, cfg.Model.Backend, cfg.Calibration.Source)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
