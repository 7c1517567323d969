/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Sick Day Helper: document store, Home Assistant
  client, reconciliation engine, poll driver, and the setup wizard server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags + environment)
  2. Open the JSON document store
  3. Install/update the dashboard package YAML
  4. Run onboarding when no mapping exists yet
  5. Recover state (startup verification + initial expiration pass)
  6. Start the poll driver and the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the poll driver (waits for running jobs)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Exit

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides SICKDAY_HTTP_PORT)
  -data    Document directory (overrides SICKDAY_DATA_DIR)

EXAMPLES:
  # Run against a local Home Assistant instance
  SUPERVISOR_URL=http://homeassistant.local:8123/api \
  SUPERVISOR_TOKEN=... ./server -data=./data

  # Run on a different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment configuration
  - driver/driver.go: Poll loop and schedulers
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/sickday-helper/api"
	"github.com/warp/sickday-helper/bundle"
	"github.com/warp/sickday-helper/config"
	"github.com/warp/sickday-helper/discovery"
	"github.com/warp/sickday-helper/driver"
	"github.com/warp/sickday-helper/ha"
	"github.com/warp/sickday-helper/sickday"
	"github.com/warp/sickday-helper/store/jsonfile"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides SICKDAY_HTTP_PORT)")
	dataDir := flag.String("data", "", "document directory (overrides SICKDAY_DATA_DIR)")
	flag.Parse()

	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// Initialize store
	store, err := jsonfile.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	client := ha.NewClient(cfg.SupervisorURL, cfg.SupervisorToken)
	engine := sickday.NewEngine(store, store, client)

	ctx := context.Background()

	// Install/update the dashboard helpers package
	if _, err := os.Stat(cfg.BundleSource); err == nil {
		installed, err := bundle.Install(cfg.BundleSource, cfg.PackagesDir)
		if err != nil {
			log.Printf("Warning: Could not install package YAML: %v", err)
		} else if installed {
			log.Printf("Package YAML installed. Home Assistant may need a restart to pick up new entities")
		}
	}

	// First-run onboarding
	if !store.MappingExists() {
		log.Printf("No mapping found, running onboarding...")
		if err := discovery.RunOnboarding(ctx, client, store); err != nil {
			log.Printf("Warning: Onboarding did not complete: %v", err)
		}
	} else if mapping, err := store.LoadMapping(); err == nil {
		log.Printf("Mapping exists with %d person(s)", len(mapping))
	}

	// Poll driver: recover state, then enter the loop
	drv, err := driver.New(engine, client, cfg.PollInterval, cfg.ExpirationInterval)
	if err != nil {
		log.Fatalf("Failed to create driver: %v", err)
	}
	if err := drv.Startup(ctx); err != nil {
		log.Printf("Warning: Startup state recovery failed: %v", err)
	}
	if err := drv.Start(ctx); err != nil {
		log.Fatalf("Failed to start driver: %v", err)
	}

	// Wizard HTTP server
	handler := api.NewHandler(engine, store, store, client)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🤒 Sick Day Helper starting on http://localhost:%d", cfg.HTTPPort)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if err := drv.Stop(); err != nil {
		log.Printf("Driver shutdown: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Stopped")
}
