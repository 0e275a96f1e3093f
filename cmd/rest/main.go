package main

import (
	"context"
	"log"

	"ai-mindmap-be/internal/bootstrap"
	"ai-mindmap-be/internal/config"
	"ai-mindmap-be/internal/server"
	"ai-mindmap-be/internal/tracer"
	"ai-mindmap-be/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()

	// 2. Initialize tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 3. Initialize database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start background workers (task queue, push bridge)
	container.Start(context.Background())

	// 6. Run server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
