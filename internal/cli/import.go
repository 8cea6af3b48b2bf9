package cli

import (
	"context"
	"fmt"

	"exam-paper-service/internal/config"
	pgstore "exam-paper-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewImportCmd copies topic documents from the GitHub repository into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import topic documents from GitHub into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath)
		},
	}
}

func runImport(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Questions.Owner == "" || cfg.Questions.Repo == "" {
		return fmt.Errorf("import needs questions.owner and questions.repo")
	}
	logger := newLogger(cfg)
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}

	db := pgstore.OpenBun(cfg.Postgres.URL)
	defer db.Close()
	store := pgstore.NewTopicStore(db)
	gh := newGitHubLoader(cfg, logger)

	imported := 0
	for _, topic := range cfg.Topics {
		doc, err := gh.LoadTopic(ctx, topic)
		if err != nil {
			logger.Warn("skipping topic", "topic", topic.ID, "error", err)
			continue
		}
		if doc.Questions == nil {
			logger.Warn("skipping topic without questions array", "topic", topic.ID)
			continue
		}
		if err := store.Upsert(ctx, topic, doc); err != nil {
			return err
		}
		imported++
		logger.Info("topic imported", "topic", topic.ID, "questions", len(doc.Questions))
	}
	logger.Info("import finished", "topics", imported, "of", len(cfg.Topics))
	return nil
}
