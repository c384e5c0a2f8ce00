package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/backend/rediscache"
	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/config"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/version"
)

var statusConfigPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend connectivity and health",
	Long:  "Connect to the configured database and cache backends and report their health, without starting the HTTP server.",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusConfigPath, "config", "", "Path to a searchd config file (YAML or TOML)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	result, err := config.Load(statusConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := result.Config

	fmt.Printf("searchd %s\n\n", version.Version)
	if result.UsedDefaults {
		fmt.Println("config: using built-in defaults")
	} else {
		fmt.Printf("config: %s\n", result.ConfigPath)
	}
	fmt.Println()

	logger := logging.New(logging.Config{Level: logging.ErrorLevel})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tCONNECTED\tSTATUS\tLATENCY(ms)")

	database := sqlitedb.New(sqlitedb.Config{
		DSN:      cfg.Backends.Database.DSN,
		MinConns: cfg.Backends.Database.MinConns,
		MaxConns: cfg.Backends.Database.MaxConns,
	}, logger)
	if err := database.Connect(ctx); err != nil {
		fmt.Fprintf(w, "database\tfalse\t%s\t-\n", err.Error())
	} else {
		defer database.Disconnect(ctx)
		health, _ := database.Health(ctx)
		printHealthRow(w, "database", database.IsConnected(), health)
	}

	if cfg.Backends.Cache.Enabled {
		cache := rediscache.New(rediscache.Config{Addr: cfg.Backends.Cache.Addr}, logger)
		if err := cache.Connect(ctx); err != nil {
			fmt.Fprintf(w, "cache\tfalse\t%s\t-\n", err.Error())
		} else {
			defer cache.Disconnect(ctx)
			health, _ := cache.Health(ctx)
			printHealthRow(w, "cache", cache.IsConnected(), health)
		}
	} else {
		fmt.Fprintln(w, "cache\tfalse\tdisabled\t-")
	}

	return w.Flush()
}

func printHealthRow(w *tabwriter.Writer, name string, connected bool, health backend.HealthStatus) {
	fmt.Fprintf(w, "%s\t%t\t%s\t%d\n", name, connected, health.Status, health.LatencyMs)
}
