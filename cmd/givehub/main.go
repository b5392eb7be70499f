// Package main is the givehub binary: the HTTP API server plus a couple of
// maintenance commands.
//
// Configuration comes from the environment (and .env); flags given on the
// command line win over it.
//
//	givehub serve --port 8080 --db data/givehub.db
//	givehub seed --demo
//	givehub version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/config"
	"github.com/sakif/givehub/internal/metrics"
	"github.com/sakif/givehub/internal/repository/sqlite"
	"github.com/sakif/givehub/internal/seed"
	"github.com/sakif/givehub/internal/server"
)

const (
	Version = "0.1.0"
	appName = "givehub"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel string
	dbPath   string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Donation matching marketplace",
		Long: `givehub connects donors with receivers.

Donors offer items, receivers ask for them, an admin approves both sides
and pairs a donation with a request. Anyone can browse approved listings.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path; overrides DB_PATH")

	cmd.AddCommand(serveCmd(&g), seedCmd(&g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		port     int
		seedDemo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("seed") {
				cfg.SeedDemo = seedDemo
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on; overrides PORT")
	cmd.Flags().BoolVar(&seedDemo, "seed", false, "Create default accounts and demo listings before serving; overrides SEED_DEMO")
	return cmd
}

func seedCmd(g *globalFlags) *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default accounts and, with --demo, demo listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg)
			db, err := openDB(cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
			if err != nil {
				return err
			}
			svcs := server.NewServices(db, tokens, auth.NewPasswordService(cfg.BcryptCost), nil, logger)

			res, err := seed.New(svcs.Auth, svcs.Donations, svcs.Requests, db, logger).Run(cmd.Context(), demo)
			if err != nil {
				return err
			}
			fmt.Printf("created %d accounts, %d donations, %d requests\n", res.Accounts, res.Donations, res.Requests)
			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", true, "Also create approved demo donations and requests")
	return cmd
}

func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = g.dbPath
	}
	return cfg, nil
}

// newLogger builds the process logger. cfg has been validated, so the level
// always parses.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openDB makes sure the database directory exists (like `mkdir -p`) and
// opens the database, applying migrations.
func openDB(path string, logger *slog.Logger) (*sqlite.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", slog.String("path", path))
	return db, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	db, err := openDB(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Store:     db,
		DB:        db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.BcryptCost),
		Metrics:   metrics.New(),
		Logger:    logger,
	}
	if cfg.GitHubEnabled() {
		deps.GitHub = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	} else {
		logger.Info("GitHub sign-in disabled; set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET to enable it")
	}

	srv, err := server.New(cfg.Port, deps)
	if err != nil {
		return err
	}

	if cfg.SeedDemo {
		svcs := srv.Services()
		if _, err := seed.New(svcs.Auth, svcs.Donations, svcs.Requests, db, logger).Run(ctx, true); err != nil {
			return err
		}
	}

	// Start blocks until SIGINT/SIGTERM.
	return srv.Start(ctx)
}
