// Package main is the entry point for the intake service binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/artifactstore"
	"github.com/wardlight/intake/internal/config"
	"github.com/wardlight/intake/internal/cryptoutil"
	"github.com/wardlight/intake/internal/extract"
	"github.com/wardlight/intake/internal/llm"
	"github.com/wardlight/intake/internal/logging"
	"github.com/wardlight/intake/internal/prompt"
	"github.com/wardlight/intake/internal/server"
	"github.com/wardlight/intake/internal/session"
	"github.com/wardlight/intake/internal/storage"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "intaked: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "intaked",
		Short:        "Clinical intake workflow service",
		Long:         "intaked runs the session-oriented clinical intake workflow: staged data capture, multi-modal input processing, and clinician handoff over HTTP.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogDir)
			if err != nil {
				return err
			}
			defer logger.Close()

			deps, artifacts, err := buildDeps(ctx, cfg, logger)
			if err != nil {
				return err
			}

			runtimeOpts := []session.RuntimeOption{session.WithRuntimeDeps(deps)}
			if cfg.UsesPostgres() {
				pool, err := pgxpool.New(ctx, cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("connect database: %w", err)
				}
				defer pool.Close()
				repo := storage.NewPostgresRepository(pool)
				if err := repo.Migrate(ctx); err != nil {
					return err
				}
				runtimeOpts = append(runtimeOpts, session.WithRuntimeRepository(repo))
			}
			runtime := session.NewRuntime(runtimeOpts...)

			srvOpts := []server.Option{server.WithLogger(logger)}
			if artifacts != nil {
				srvOpts = append(srvOpts, server.WithArtifactStore(artifacts))
			}
			srv := server.New(server.Settings{
				ListenAddr: cfg.Server.ListenAddr,
				PinLength:  cfg.Security.PinLength,
			}, runtime, srvOpts...)
			if err := srv.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("migrate: no database configured")
			}
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			return storage.NewPostgresRepository(pool).Migrate(ctx)
		},
	}
}

// buildDeps assembles the capability set shared by all agents from the
// configuration, plus the artifact store when one is configured.
// Missing optional backends degrade to nil capabilities the agents
// already tolerate.
func buildDeps(ctx context.Context, cfg *config.Config, logger agent.Logger) (agent.Deps, *artifactstore.Store, error) {
	deps := agent.Deps{
		Logger:      logger,
		Transcriber: extract.NewService(),
	}

	if cfg.PromptsDir != "" {
		deps.Prompts = prompt.NewDirLoader(cfg.PromptsDir)
	}

	if cfg.LLM.APIKey != "" {
		client, err := llm.NewGeminiClient(cfg.LLM.APIKey, llm.WithModel(cfg.LLM.Model), llm.WithLogger(logger))
		if err != nil {
			return agent.Deps{}, nil, err
		}
		deps.Generator = client
	}

	if os.Getenv(cryptoutil.DefaultKeyEnv) != "" {
		provider, err := cryptoutil.NewEnvKeyProvider()
		if err != nil {
			return agent.Deps{}, nil, err
		}
		deps.Crypto = provider
	}

	var artifacts *artifactstore.Store
	if cfg.UsesObjectStore() {
		store, err := artifactstore.New(artifactstore.Options{
			Endpoint:  cfg.ObjectStore.Endpoint,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Bucket:    cfg.ObjectStore.Bucket,
			Region:    cfg.ObjectStore.Region,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			return agent.Deps{}, nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return agent.Deps{}, nil, err
		}
		artifacts = store
	}

	return deps, artifacts, nil
}
