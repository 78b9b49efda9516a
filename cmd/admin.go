package cmd

import (
	"fmt"
	"time"

	"promptmatch-backend/internal/config"
	"promptmatch-backend/internal/repository"
	"promptmatch-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	promptDay      string
	promptQuestion string
	inviteCount    int
	tokenUser      string
	tokenTTL       time.Duration
)

// migrateCmd applies the database schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("database.driver must be %q to migrate", config.DriverPostgres)
		}

		db, err := connectDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		log.Info().Msg("Schema applied")
		return nil
	},
}

// promptCmd groups daily prompt administration
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage daily prompts",
}

// promptSetCmd sets the question of a day
var promptSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the prompt question of a day",
	Long: `Set the prompt question of a UTC calendar day. Setting a day twice
replaces its question.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stores, closeStores, err := openPersistentStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStores()

		day := promptDay
		if day == "" {
			day = time.Now().UTC().Format("2006-01-02")
		}
		prompt, err := services.NewPromptService(stores.Prompts).SetPrompt(cmd.Context(), day, promptQuestion)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", prompt.Day, prompt.Question)
		return nil
	},
}

// inviteCmd groups invite administration
var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage invite codes",
}

// inviteCreateCmd creates operator invites, which belong to no user
var inviteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create operator invite codes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if inviteCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stores, closeStores, err := openPersistentStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStores()

		accounts := services.NewAccountService(stores.Tx, stores.Users, stores.Invites, stores.Prompts, nil)
		for range inviteCount {
			invite, err := accounts.CreateInvite(cmd.Context(), "")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), invite.Code)
		}
		return nil
	},
}

// tokenCmd issues a bearer token for local testing
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user id",
	Long: `Issue a bearer token signed with auth.jwt_secret. Production tokens come
from the auth provider; this is for local runs and smoke tests.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := services.NewIdentityService(cfg.Auth.JWTSecret, cfg.Auth.Issuer).IssueToken(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	promptSetCmd.Flags().StringVar(&promptDay, "day", "", "UTC day as YYYY-MM-DD (default: today)")
	promptSetCmd.Flags().StringVar(&promptQuestion, "question", "", "Prompt question")
	_ = promptSetCmd.MarkFlagRequired("question")
	promptCmd.AddCommand(promptSetCmd)

	inviteCreateCmd.Flags().IntVarP(&inviteCount, "count", "n", 1, "Number of codes to create")
	inviteCmd.AddCommand(inviteCreateCmd)

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id placed in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
