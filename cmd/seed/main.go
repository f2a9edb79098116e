package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/config"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// Fixture is the YAML layout accepted by the seeder.
type Fixture struct {
	Tools     []*models.Tool `yaml:"tools"`
	Pipelines []struct {
		models.Pipeline `yaml:",inline"`
		Segments        []*models.Segment `yaml:"segments"`
	} `yaml:"pipelines"`
}

func main() {
	var configPath, fixturePath string

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load tools, pipelines and segments from a YAML fixture",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.NewLogger(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

			fixture, err := loadFixture(fixturePath)
			if err != nil {
				return err
			}

			store, err := repository.Open(ctx, cfg.DB, logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			if err := seed(ctx, store, fixture, logger); err != nil {
				return err
			}
			logger.Info("Seeding complete!")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVarP(&fixturePath, "file", "f", "seed.yaml", "Path to the YAML fixture")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// seed creates every record of f that is not stored yet. Existing records
// are left untouched, so the seeder can run repeatedly.
func seed(ctx context.Context, store repository.Repository, f *Fixture, logger *logging.Logger) error {
	for _, tool := range f.Tools {
		_, err := store.GetTool(ctx, tool.ID)
		switch {
		case err == nil:
			logger.Info("Skipping existing tool", "id", tool.ID)
			continue
		case !errors.Is(err, apperr.ErrNotFound):
			return fmt.Errorf("failed to look up tool %s: %w", tool.ID, err)
		}
		if err := store.CreateTool(ctx, tool); err != nil {
			return fmt.Errorf("failed to create tool %s: %w", tool.ID, err)
		}
		logger.Info("Seeded tool", "id", tool.ID, "title", tool.Title)
	}

	for i := range f.Pipelines {
		p := &f.Pipelines[i].Pipeline
		_, err := store.GetPipeline(ctx, p.ID)
		switch {
		case err == nil:
			logger.Info("Found existing pipeline", "id", p.ID)
		case errors.Is(err, apperr.ErrNotFound):
			if err := store.CreatePipeline(ctx, p); err != nil {
				return fmt.Errorf("failed to create pipeline %s: %w", p.ID, err)
			}
			logger.Info("Seeded pipeline", "id", p.ID, "name", p.Name)
		default:
			return fmt.Errorf("failed to look up pipeline %s: %w", p.ID, err)
		}

		existing, err := store.ListSegments(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to list segments of %s: %w", p.ID, err)
		}
		known := make(map[string]bool, len(existing))
		for _, s := range existing {
			known[s.ID] = true
		}

		for _, s := range f.Pipelines[i].Segments {
			if known[s.ID] {
				logger.Info("Skipping existing segment", "id", s.ID)
				continue
			}
			s.PipelineID = p.ID
			if err := store.CreateSegment(ctx, s); err != nil {
				return fmt.Errorf("failed to create segment %s: %w", s.ID, err)
			}
			logger.Info("Seeded segment", "id", s.ID, "pipeline", p.ID, "order", s.Order)
		}
	}
	return nil
}
