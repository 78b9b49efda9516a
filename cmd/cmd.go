package cmd

import (
	"context"
	"fmt"
	"os"

	"promptmatch-backend/internal/config"
	"promptmatch-backend/internal/repository"
	"promptmatch-backend/internal/repository/memory"
	"promptmatch-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the promptmatch binary
var rootCmd = &cobra.Command{
	Use:           "promptmatch",
	Short:         "Prompt based dating backend for university students",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads the config and sets up logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level)
	return cfg, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// connectDB opens and pings the PostgreSQL pool
func connectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")
	return db, nil
}

// openStores builds the stores of the configured driver. The returned func releases them.
func openStores(ctx context.Context, cfg *config.Config) (services.Stores, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		store := memory.New()
		return services.Stores{
			Tx:         store,
			Users:      store.Users(),
			Prompts:    store.Prompts(),
			Candidates: store.Candidates(),
			Swipes:     store.Swipes(),
			Matches:    store.Matches(),
			Messages:   store.Messages(),
			Invites:    store.Invites(),
		}, func() {}, nil
	}

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return services.Stores{}, nil, err
	}
	return services.Stores{
		Tx:         repository.NewTransactor(db),
		Users:      repository.NewUserRepository(db),
		Prompts:    repository.NewPromptRepository(db),
		Candidates: repository.NewCandidateRepository(db),
		Swipes:     repository.NewSwipeRepository(db),
		Matches:    repository.NewMatchRepository(db),
		Messages:   repository.NewMessageRepository(db),
		Invites:    repository.NewInviteRepository(db),
	}, db.Close, nil
}

// openPersistentStores is openStores for admin commands, whose writes must outlive the process
func openPersistentStores(ctx context.Context, cfg *config.Config) (services.Stores, func(), error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return services.Stores{}, nil, fmt.Errorf("database.driver must be %q for this command", config.DriverPostgres)
	}
	return openStores(ctx, cfg)
}
