package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codetrail/tracker/internal/config"
)

var (
	listenAddr string
	dbPath     string
	jwtSecret  string
	logFile    string
	logLevel   string
	corsOrigin string
)

var rootCmd = &cobra.Command{
	Use:   "trackd",
	Short: "trackd - Issue tracker API server",
	Long:  `A REST/JSON issue tracker server. Issues, labels, comments and users backed by SQLite, with JWT bearer authentication.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		}

		// Priority: flags > config file + env vars > defaults
		if !cmd.Flags().Changed("listen") {
			listenAddr = config.GetString("listen")
		}
		if !cmd.Flags().Changed("db") && dbPath == "" {
			dbPath = config.GetString("db")
		}
		if !cmd.Flags().Changed("jwt-secret") && jwtSecret == "" {
			jwtSecret = config.GetString("jwt-secret")
		}
		if !cmd.Flags().Changed("log-file") {
			logFile = config.GetString("log-file")
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = config.GetString("log-level")
		}
		if !cmd.Flags().Changed("cors-origin") {
			corsOrigin = config.GetString("cors-origin")
		}
	},
	// Running trackd with no subcommand starts the server
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", ":7000", "Address to listen on")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.trackd/tracker.db)")
	rootCmd.PersistentFlags().StringVar(&jwtSecret, "jwt-secret", "", "Secret for signing JWT tokens (required, or set TRACKD_JWT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log to this file with rotation instead of stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&corsOrigin, "cors-origin", "*", "Value for Access-Control-Allow-Origin")
}

func main() {
	// Handle --version flag (in addition to 'version' subcommand)
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("trackd version %s (%s)\n", Version, Build)
			return
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
