package main

import (
	"context"
	"flag"
	"log"

	"github.com/google/uuid"
	"github.com/minho/rnd-harvester/internal/config"
	"github.com/minho/rnd-harvester/internal/db"
)

func main() {
	jobID := flag.String("job", "", "requeue a single job by id instead of all failed jobs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)

	if *jobID != "" {
		id, err := uuid.Parse(*jobID)
		if err != nil {
			log.Fatalf("Invalid job id: %v", err)
		}
		if err := store.RequeueJob(ctx, id); err != nil {
			log.Fatal(err)
		}
		log.Printf("Requeued job %s", id)
		return
	}

	n, err := store.RequeueFailed(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Requeued %d failed jobs", n)
}
