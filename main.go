package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/everyshare/tripbot/api"
	"github.com/everyshare/tripbot/config"
	"github.com/everyshare/tripbot/internal/adapter/fare"
	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/internal/adapter/vision"
	"github.com/everyshare/tripbot/internal/decoder"
	"github.com/everyshare/tripbot/internal/media"
	"github.com/everyshare/tripbot/internal/memory"
	"github.com/everyshare/tripbot/internal/service"
	"github.com/everyshare/tripbot/policy"
	"github.com/everyshare/tripbot/store"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	log.Printf("Starting tripbot...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Model: %s", cfg.Model)

	// Initialize durable history
	durable, err := store.NewSQLiteHistory(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize history store: %v", err)
	}
	defer durable.Close()

	// Initialize media store for inbound images
	mediaStore, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		log.Fatalf("Failed to initialize media store: %v", err)
	}

	// Initialize model client
	llmClient := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.EmbeddingModel, cfg.LLMTimeout)

	// Initialize tool adapters
	fareClient := fare.NewClient(cfg.AmadeusBaseURL, cfg.AmadeusClientID, cfg.AmadeusClientSecret)

	ctx := context.Background()
	visionClient, err := vision.NewClient(ctx, cfg.VisionAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize vision client: %v", err)
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize orchestrator
	svc := service.New(cfg, llmClient, durable, decoder.New(mediaStore), fareClient, visionClient,
		memory.NewIndex(llmClient), policyEngine)

	// Initialize transport
	h := api.NewHandler(cfg, svc, api.NewHub())

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowCredentials: true,
	}))

	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Chat API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down tripbot...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Tripbot stopped")
}
