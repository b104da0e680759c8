package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/casefront/engage/internal/auth"
	"github.com/casefront/engage/internal/config"
	"github.com/casefront/engage/internal/conflictlist"
	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/enterprise"
	"github.com/casefront/engage/internal/goalsource"
	"github.com/casefront/engage/internal/intake"
	"github.com/casefront/engage/internal/llm"
	"github.com/casefront/engage/internal/notify"
	"github.com/casefront/engage/internal/secrets"
	"github.com/casefront/engage/internal/server"
	"github.com/casefront/engage/internal/store/postgres"
	redisstore "github.com/casefront/engage/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("ENGAGE_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("ENGAGE_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Self-hosted deployments run against a license; the hosted service
	// skips the check entirely.
	var license *enterprise.Validator
	if cfg.SelfHosted && cfg.License.ID != "" {
		license = enterprise.NewValidator(&enterprise.License{
			ID:        cfg.License.ID,
			Org:       cfg.License.Org,
			MaxSeats:  cfg.License.MaxSeats,
			Features:  cfg.License.Features,
			ExpiresAt: cfg.License.ExpiresAt,
		})
		if err := license.Validate(); err != nil {
			return fmt.Errorf("license: %w", err)
		}
		log.Info().Str("org", cfg.License.Org).Int("seats", cfg.License.MaxSeats).Msg("license validated")
	}

	// Encrypt client identity at rest when a vault key is configured.
	if cfg.Vault.KeyHex != "" {
		if license != nil && !license.HasFeature(enterprise.FeatureIdentityVault) {
			return fmt.Errorf("license: %s feature not licensed", enterprise.FeatureIdentityVault)
		}
		vault, vErr := secrets.NewVaultFromHex(cfg.Vault.KeyHex)
		if vErr != nil {
			return fmt.Errorf("vault: %w", vErr)
		}
		store.UseIdentityVault(vault)
		log.Info().Msg("identity vault enabled")
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Auth for firm staff and the verifier for client login assertions.
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if license != nil {
		authSvc.UseSeatLimit(license)
	}
	verifier := auth.NewAssertionVerifier(cfg.Assertion.Secret, cfg.Assertion.Issuer)

	// Conflict index: chromem-backed vector store over the firm's conflict
	// list, embedded via the OpenAI-compatible embeddings API.
	embedder := llm.NewEmbeddingClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbedModel,
		Timeout: cfg.LLM.Timeout,
	})
	conflictIndex, err := conflictlist.New(cfg.ConflictStore.PersistPath, embedder.Embed)
	if err != nil {
		return fmt.Errorf("conflict index: %w", err)
	}

	if err := rebuildConflictIndex(ctx, store, conflictIndex); err != nil {
		return fmt.Errorf("conflict index rebuild: %w", err)
	}

	// Completion backend for the intake agent.
	completer := llm.NewOpenAIClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	// Intake pipeline: goal registry, assessor, detector, state machine,
	// prompt builder, orchestrator.
	registry := intake.NewGoalRegistry()
	assessor := intake.NewGoalAssessor()
	detector := intake.NewConflictDetector(conflictIndex, cfg.Intake.ConflictDetect, cfg.Intake.ConflictPending, cfg.Intake.ConflictTopK)
	machine := intake.NewMachine(store.Sessions(), registry, store.Audit(), cfg.Intake.ResumeTokenTTL)
	machine.UsePublisher(pubsub)
	prompts := intake.NewPromptBuilder(cfg.Intake.HistoryBudget, cfg.LLM.MaxTokens)

	// Optional collaborators, gated by license features when self-hosted.
	var goalSource intake.GoalSource
	if cfg.GoalSource.BaseURL != "" {
		if license != nil && !license.HasFeature(enterprise.FeatureGoalSource) {
			log.Warn().Msg("goal source configured but not licensed; disabled")
		} else {
			goalSource = goalsource.New(cfg.GoalSource.BaseURL, cfg.GoalSource.APIKey, cfg.GoalSource.Timeout)
			log.Info().Str("url", cfg.GoalSource.BaseURL).Msg("supplemental goal source enabled")
		}
	}

	var notifier intake.HandoffNotifier
	if cfg.Slack.BotToken != "" {
		if license != nil && !license.HasFeature(enterprise.FeatureSlackHandoff) {
			log.Warn().Msg("Slack handoff configured but not licensed; disabled")
		} else {
			notifier = notify.NewSlackNotifier(slacklib.New(cfg.Slack.BotToken), store.Firms())
			log.Info().Msg("Slack handoff notifications enabled")
		}
	}

	orchestrator := intake.NewOrchestrator(
		machine,
		assessor,
		detector,
		completer,
		prompts,
		goalSource,
		pubsub,
		notifier,
		cfg.LLM.Timeout,
	)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, server.Deps{
		Store:         store,
		PubSub:        pubsub,
		Auth:          authSvc,
		Verifier:      verifier,
		Orchestrator:  orchestrator,
		Machine:       machine,
		ConflictIndex: conflictIndex,
	})

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// rebuildConflictIndex streams every firm's conflict entries from Postgres
// into the vector index. The durable rows are the source of truth; the
// index is derived state and safe to rebuild on every boot.
func rebuildConflictIndex(ctx context.Context, store *postgres.Store, index *conflictlist.Store) error {
	firms, err := store.Firms().List(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, firm := range firms {
		err := store.ConflictEntries().ForEach(ctx, firm.ID, func(e *domain.ConflictEntry) error {
			if addErr := index.Add(ctx, e); addErr != nil {
				return addErr
			}
			total++
			return nil
		})
		if err != nil {
			return err
		}
	}

	log.Info().Int("firms", len(firms)).Int("entries", total).Msg("conflict index ready")
	return nil
}
