package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/minho/rnd-harvester/internal/config"
	"github.com/minho/rnd-harvester/internal/db"
)

func main() {
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
	stats, err := store.GetStats(ctx)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Status", "Jobs"})
	for _, status := range []string{"PENDING", "PROCESSING", "COMPLETED", "FAILED", "SKIPPED"} {
		t.AppendRow(table.Row{status, stats.JobCounts[status]})
	}
	t.Render()

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Programs", "Active", "Manual Review"})
	t.AppendRow(table.Row{stats.TotalPrograms, stats.ActivePrograms, stats.ManualReview})
	t.Render()

	rows, err := pool.Query(ctx, `
		SELECT processing_worker, processing_status, processing_attempts, processing_started_at
		FROM scraping_jobs
		WHERE processing_status = 'PROCESSING'
		ORDER BY processing_started_at ASC
		LIMIT 20`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Worker", "Status", "Attempts", "Running"})
	active := false
	for rows.Next() {
		var worker, status string
		var attempts int
		var startedAt *time.Time
		if err := rows.Scan(&worker, &status, &attempts, &startedAt); err != nil {
			log.Printf("Scan error: %v", err)
			continue
		}
		running := "-"
		if startedAt != nil {
			running = time.Since(*startedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{worker, status, attempts, running})
		active = true
	}
	if active {
		t.Render()
	}
}
