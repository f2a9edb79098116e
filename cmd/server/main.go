package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/config"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/engine"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/pipeline"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/provider"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "mccarthy",
		Short:        "McCarthy tool invocation engine",
		Long:         "McCarthy invokes marketplace tools behind one contract and runs them as pipelines.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./config.yaml)")

	cmd.AddCommand(
		newServeCommand(&configPath),
		newRunCommand(&configPath),
		newInvokeCommand(&configPath),
	)
	return cmd
}

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	repo       repository.Repository
	engine     *engine.Engine
	runner     *pipeline.Orchestrator
	playground *services.PlaygroundService
}

func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration loading failed: %w", err)
	}

	logger := logging.NewLogger(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	repo, err := repository.Open(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}

	adapters := provider.NewSet(provider.Options{
		HTTPClient:       provider.NewHTTPClient(),
		OpenAIBaseURL:    cfg.Providers.OpenAIBaseURL,
		AnthropicBaseURL: cfg.Providers.AnthropicBaseURL,
		GoogleBaseURL:    cfg.Providers.GoogleBaseURL,
	})
	eng := engine.New(repo, adapters, logger, engine.WithTimeout(cfg.Invocation.Timeout))
	runner := pipeline.New(repo, eng, logger)

	similarity := services.NewHTTPSimilarityClient(services.SimilarityOptions{
		URL:          cfg.Similarity.URL,
		Timeout:      cfg.Similarity.Timeout,
		TokenURL:     cfg.Similarity.TokenURL,
		ClientID:     cfg.Similarity.ClientID,
		ClientSecret: cfg.Similarity.ClientSecret,
	})
	selector := services.NewToolSelector(repo, similarity, logger)
	playground := services.NewPlaygroundService(selector, eng, cfg.Playground.SystemPrompt, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		engine:     eng,
		runner:     runner,
		playground: playground,
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
}
