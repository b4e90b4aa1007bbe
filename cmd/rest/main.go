package main

import (
	"context"
	"log"

	"teleconsult-be/internal/bootstrap"
	"teleconsult-be/internal/config"
	"teleconsult-be/internal/server"
	"teleconsult-be/internal/tracer"
	"teleconsult-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Email Dispatch Service...")
		if err := container.EmailDispatchService.Consume(context.Background()); err != nil {
			log.Printf("Background Email Dispatch Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
