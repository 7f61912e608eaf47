package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codetrail/tracker/internal/api"
	"github.com/codetrail/tracker/internal/auth"
	"github.com/codetrail/tracker/internal/config"
	"github.com/codetrail/tracker/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// defaultDBPath resolves the database location when --db wasn't given
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".trackd")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, "tracker.db"), nil
}

func runServe(ctx context.Context) error {
	if jwtSecret == "" {
		return fmt.Errorf("a JWT secret is required: pass --jwt-secret or set TRACKD_JWT_SECRET")
	}

	path := dbPath
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return err
		}
	}

	logger, closeLog, err := newLogger(logFile, logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := sqlite.New(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokens(jwtSecret, config.GetDuration("jwt-ttl"))
	if err != nil {
		return err
	}

	api.ServerVersion = Version
	srv := api.NewServer(store, tokens, logger, corsOrigin)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s trackd %s listening on %s (db: %s)\n", green("✓"), Version, listenAddr, path)

	if err := srv.Start(ctx, listenAddr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
