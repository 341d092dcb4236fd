package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/postgres"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/app"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/config"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	var repo ports.AnalysisRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		analysisRepo := postgres.NewAnalysisRepository(db)
		if err := analysisRepo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		repo = analysisRepo
		logger.Info("Report persistence enabled")
	} else {
		logger.Warn("DATABASE_URL not set, reports will not be persisted")
	}

	service, err := app.NewSynthesisService(cfg.AnalysisConfig(), repo, logger)
	if err != nil {
		log.Fatalf("Failed to initialize synthesis service: %v", err)
	}

	server := ui.NewServer(cfg, service, repo)
	if err := server.Start(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
