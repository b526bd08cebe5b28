package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/autosurvey/internal/db"
	"github.com/jonathan/autosurvey/internal/ingestion"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/spf13/cobra"
)

var (
	ingestDir     string
	ingestForce   bool
	ingestNoEmbed bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load reference questionnaires into the corpus database",
	Long: `Walks a directory of .txt, .md and .html questionnaires, embeds them and
upserts them into PostgreSQL. The parent directory name of each file is stored
as its domain. Documents whose content fingerprint is already stored are skipped.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Corpus directory (required)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Re-embed documents that are already stored")
	ingestCmd.Flags().BoolVar(&ingestNoEmbed, "no-embed", false, "Store documents for lexical search only")
	_ = ingestCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (use --db-url flag or DATABASE_URL env var)")
	}
	logger := newLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	docs, err := ingestion.LoadDirectory(ingestDir)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	var embedder llm.Embedder
	if !ingestNoEmbed {
		if cfg.APIKey == "" {
			return fmt.Errorf("API key is required for embeddings (or pass --no-embed)")
		}
		e, err := llm.NewGeminiEmbedder(ctx, cfg.APIKey, cfg.EmbeddingModel)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		embedder = e
	}

	indexer := ingestion.NewIndexer(database, embedder, logger)
	indexer.Force = ingestForce
	summary, err := indexer.Index(ctx, docs)
	if err != nil {
		return err
	}

	total, err := database.CountReferences(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d, skipped %d, upserted %d (corpus now %d documents)\n", //nolint:errcheck
		summary.Loaded, summary.Skipped, summary.Upserted, total)
	return nil
}
