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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cellsight/cellsight/agent"
	"github.com/cellsight/cellsight/api"
	"github.com/cellsight/cellsight/config"
	"github.com/cellsight/cellsight/harness"
	"github.com/cellsight/cellsight/mockapi"
	"github.com/cellsight/cellsight/policy"
	"github.com/cellsight/cellsight/store"
	"github.com/cellsight/cellsight/tools"
	"github.com/cellsight/cellsight/tracer"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting cellsight...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Mock API Port: %d", cfg.MockAPIPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize tools
	registry := tools.NewRegistry(policyEngine)
	tools.RegisterBuiltins(registry, tools.BuiltinConfig{
		APIBaseURL: cfg.MockAPIURL,
		HTTPClient: &http.Client{Timeout: cfg.ToolTimeout},
	})

	// Initialize tracer and agent capability
	tr := tracer.New(db)
	capability := agent.New(registry, cfg.AgentURL, cfg.AgentTimeout)

	// Initialize harness with the default suite
	h := harness.New(tr, capability)
	for _, tc := range harness.DefaultCases() {
		if err := h.Add(tc); err != nil {
			log.Fatalf("Failed to register test case: %v", err)
		}
	}

	// Report API server
	apiServer := echo.New()
	apiServer.HideBanner = true
	apiServer.Use(middleware.Logger())
	apiServer.Use(middleware.Recover())
	apiServer.Use(middleware.CORS())
	api.NewHandler(tr, capability, h).RegisterRoutes(apiServer)

	// Mock SaaS API server
	mockServer := echo.New()
	mockServer.HideBanner = true
	mockServer.Use(middleware.Logger())
	mockServer.Use(middleware.Recover())
	mockapi.NewServer(mockapi.DefaultConfig()).RegisterRoutes(mockServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := apiServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.MockAPIPort)
		if err := mockServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start mock API server: %v", err)
		}
	}()

	log.Printf("Report API started on port %d", cfg.HTTPPort)
	log.Printf("Mock API started on port %d", cfg.MockAPIPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down cellsight...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown API server gracefully: %v", err)
	}
	if err := mockServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown mock API server gracefully: %v", err)
	}

	log.Println("Cellsight stopped")
}
