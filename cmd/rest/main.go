package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-counselor-be/internal/bootstrap"
	"ai-counselor-be/internal/config"
	"ai-counselor-be/internal/server"
	"ai-counselor-be/internal/tracer"
	"ai-counselor-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Tracer is a no-op unless OTEL_ENABLED=true
	shutdownTracer := tracer.InitTracer(cfg.App.Environment)
	defer shutdownTracer(context.Background())
	if cfg.App.JWTSecret == "" {
		log.Println("[WARN] JWT_SECRET is empty, every authenticated request will be rejected")
	}

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.SafetyAlertService != nil {
		container.SafetyAlertService.Start(ctx)
	}

	// Resumes runs interrupted by the previous shutdown
	container.Orchestrator.Start()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	container.Orchestrator.Stop()
	log.Println("✅ Shutdown complete")
}
