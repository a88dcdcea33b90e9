package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/infra/memory"
	"trivia-room-service/internal/infra/postgres"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runMigrationsWithConfig(cmd.Context(), cfg, newLogger(cfg.Log.Level))
		},
	}
}

// NewSeedCmd imports question sets from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import question sets from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Questions.File
			}
			return runSeed(cmd.Context(), cfg, file, newLogger(cfg.Log.Level))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file of question sets (defaults to questions.file)")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func runSeed(ctx context.Context, cfg config.Config, file string, logger *logrus.Logger) error {
	if file == "" {
		return fmt.Errorf("no question file given")
	}
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}
	sets, err := memory.ReadQuestionFile(file)
	if err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	writer := postgres.NewQuestionWriter(db)
	for id, set := range sets {
		if err := writer.SaveQuestionSet(ctx, set); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"set": id, "questions": len(set.Questions)}).Info("question set imported")
	}
	return nil
}
