package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptmatch-backend/internal/config"
	"promptmatch-backend/internal/handlers"
	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/services"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	defaultAWSRegion = "us-east-1"
	shutdownTimeout  = 15 * time.Second
)

var bootstrapQuestion string

// serveCmd runs the HTTP and WebSocket API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Long: `Run the HTTP and WebSocket API.

With database.driver=memory the store starts empty, so serve creates one
operator invite and sets today's prompt to --prompt.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&bootstrapQuestion, "prompt", "What is your favorite spot on campus?",
		"Question of today's prompt when running on the memory driver")
}

// bootstrapMemory makes an empty store usable: nobody can sign up without a first invite,
// and the feed stays empty until someone answers a prompt.
func bootstrapMemory(ctx context.Context, accounts *services.AccountService, prompts *services.PromptService, question string) (*models.Invite, error) {
	invite, err := accounts.CreateInvite(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap invite: %w", err)
	}
	log.Info().Str("code", invite.Code).Msg("Bootstrap invite created")

	prompt, err := prompts.SetPrompt(ctx, time.Now().UTC().Format("2006-01-02"), question)
	if err != nil {
		return nil, fmt.Errorf("failed to set bootstrap prompt: %w", err)
	}
	log.Info().Str("day", prompt.Day).Str("question", prompt.Question).Msg("Bootstrap prompt set")
	return invite, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	g, gctx := errgroup.WithContext(ctx)

	hub := services.NewHub()
	var broker services.Broker = hub
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		redisBroker := services.NewRedisBroker(client, hub)
		if err := redisBroker.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		if err := redisBroker.Subscribe(ctx); err != nil {
			return err
		}
		g.Go(func() error { return redisBroker.Relay(gctx) })
		broker = redisBroker
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Chat fan-out through redis")
	}

	region := cfg.AWS.Region
	if region == "" {
		region = defaultAWSRegion
	}
	photos, err := services.NewPhotoService(ctx, services.PhotoOptions{
		Region:    region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
		URLTTL:    cfg.AWS.URLTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create photo service: %w", err)
	}
	if cfg.AWS.S3Bucket == "" {
		log.Warn().Msg("No S3 bucket configured, photo uploads are disabled")
	}

	var notifier services.MatchNotifier = services.NopNotifier{}
	if cfg.APNS.CertFile != "" {
		apns, err := services.NewAPNSNotifier(cfg.APNS.CertFile, cfg.APNS.CertPassword, cfg.APNS.Topic, cfg.APNS.Production)
		if err != nil {
			return fmt.Errorf("failed to create push notifier: %w", err)
		}
		notifier = apns
	}

	svc := handlers.Services{
		Identity: services.NewIdentityService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Accounts: services.NewAccountService(stores.Tx, stores.Users, stores.Invites, stores.Prompts, photos),
		Photos:   photos,
		Prompts:  services.NewPromptService(stores.Prompts),
		Feed: services.NewFeedService(stores.Candidates, stores.Users, stores.Prompts, photos, services.FeedOptions{
			CandidateLimit:        cfg.Feed.CandidateLimit,
			ResponsesPerCandidate: cfg.Feed.ResponsesPerCandidate,
			RecencyWindow:         cfg.Feed.RecencyWindow,
		}),
		Swipes:  services.NewSwipeService(stores.Tx, stores.Swipes, stores.Users, stores.Matches, notifier),
		Matches: services.NewMatchService(stores.Matches, stores.Users, photos),
		Chat: services.NewChatService(stores.Matches, stores.Messages, broker, services.ChatOptions{
			SubscriberBuffer: cfg.Chat.SubscriberBuffer,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
		}),
	}

	if cfg.Database.Driver == config.DriverMemory {
		if _, err := bootstrapMemory(ctx, svc.Accounts, svc.Prompts, bootstrapQuestion); err != nil {
			return err
		}
	}

	// WriteTimeout stays unset: WebSocket writes set their own deadlines
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handlers.NewRouter(svc, cfg.Server.RequestTimeout),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("driver", cfg.Database.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
