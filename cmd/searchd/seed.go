package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/config"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/seed"
)

var (
	seedConfigPath string
	seedDataset    string
	seedCount      int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Materialize synthetic documents into the database backend",
	Long: `Run a one-off seed job against the configured database backend,
without starting the HTTP server. Useful for populating a fresh
environment before pointing 'searchd serve' at it.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedConfigPath, "config", "", "Path to a searchd config file (YAML or TOML)")
	seedCmd.Flags().StringVar(&seedDataset, "dataset", "", "Dataset to seed (required)")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "Number of documents to generate")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedDataset == "" {
		return fmt.Errorf("--dataset is required")
	}

	result, err := config.Load(seedConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := result.Config

	logger := logging.New(logging.Config{Format: logging.Format(cfg.Logging.Format), Level: logging.Level(cfg.Logging.Level)})

	database := sqlitedb.New(sqlitedb.Config{
		DSN:      cfg.Backends.Database.DSN,
		MinConns: cfg.Backends.Database.MinConns,
		MaxConns: cfg.Backends.Database.MaxConns,
	}, logger)

	ctx := context.Background()
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to database backend: %w", err)
	}
	defer database.Disconnect(ctx)

	jobs := seed.NewJobStore()
	seeder := seed.NewSeeder(database, jobs, logger, nil)

	job := seeder.Start(ctx, seedDataset, seedCount)

	fmt.Printf("seed job %s started for dataset %q (%d documents)\n", job.ID, seedDataset, seedCount)

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		current, err := jobs.Get(job.ID)
		if err != nil {
			return fmt.Errorf("looking up seed job: %w", err)
		}
		switch current.Status {
		case seed.StatusCompleted:
			fmt.Printf("seed job %s completed: %d rows written\n", job.ID, current.RowsWritten)
			return nil
		case seed.StatusFailed:
			return fmt.Errorf("seed job %s failed: %s", job.ID, current.Error)
		}
		time.Sleep(50 * time.Millisecond)
	}

	return fmt.Errorf("seed job %s did not complete within 2 minutes", job.ID)
}
