package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/autosurvey/internal/classify"
	"github.com/jonathan/autosurvey/internal/config"
	"github.com/jonathan/autosurvey/internal/db"
	"github.com/jonathan/autosurvey/internal/extraction"
	"github.com/jonathan/autosurvey/internal/feedback"
	"github.com/jonathan/autosurvey/internal/generation"
	"github.com/jonathan/autosurvey/internal/ingestion"
	"github.com/jonathan/autosurvey/internal/keywords"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/logging"
	"github.com/jonathan/autosurvey/internal/pipeline"
	"github.com/jonathan/autosurvey/internal/retrieval"
	"github.com/jonathan/autosurvey/internal/revision"
	"go.uber.org/zap"
)

// loadSettings merges defaults, the config file, environment variables and
// flags, in increasing precedence.
func loadSettings(getenv func(string) string) (config.Config, error) {
	var fileCfg config.Config
	if flagConfigPath != "" {
		loaded, err := config.LoadConfig(flagConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = *loaded
	}

	cfg := fileCfg.MergeWithDefaults(config.Default())
	cfg.ApplyEnv(getenv)

	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagDatabaseURL != "" {
		cfg.DatabaseURL = flagDatabaseURL
	}
	if flagCorpusDir != "" {
		cfg.CorpusDir = flagCorpusDir
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, json bool) *zap.Logger {
	return logging.New(logging.Options{
		Verbose: cfg.Verbose,
		JSON:    json,
		File:    cfg.LogFile,
	})
}

// app holds the long-lived collaborators built from a Config.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   llm.Client
	embedder llm.Embedder
	store    retrieval.Store
	database *db.DB
}

// newApp connects the model client and the reference corpus. The corpus is
// PostgreSQL when a database URL is configured, otherwise an in-memory index
// of CorpusDir (possibly empty).
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (use --api-key flag or GEMINI_API_KEY env var)")
	}

	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		client: llm.WithTimeout(client, cfg.CallTimeoutDuration()),
	}

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.APIKey, cfg.EmbeddingModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.embedder = llm.EmbedderWithTimeout(embedder, cfg.CallTimeoutDuration())

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.database = database
		a.store = database
		return a, nil
	}

	memory := retrieval.NewMemoryStore()
	if cfg.CorpusDir != "" {
		docs, err := ingestion.LoadDirectory(cfg.CorpusDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		if _, err := ingestion.NewIndexer(memory, a.embedder, logger).Index(ctx, docs); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to index corpus: %w", err)
		}
	} else {
		logger.Warn("no reference corpus configured; drafts are generated without references")
	}
	a.store = memory
	return a, nil
}

// components wires the drafting collaborators around the shared client.
func (a *app) components() pipeline.Components {
	return pipeline.Components{
		Keywords:   keywords.NewExtractor(a.cfg.KeywordCount),
		Extractor:  extraction.NewExtractor(a.client, a.logger),
		Retriever:  retrieval.NewRetriever(a.store, a.embedder, a.client, a.logger),
		Classifier: classify.NewClassifier(a.client, a.logger),
		Generator:  generation.NewGenerator(a.client, a.logger),
		Structurer: feedback.NewStructurer(a.client, a.logger),
		Reviser:    revision.NewEngine(a.client, a.logger),
	}
}

// Close releases the client, the embedder and the database pool.
func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			a.logger.Debug("failed to close embedder", zap.Error(err))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Debug("failed to close LLM client", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// readInput returns text from --text, or the contents of --in.
func readInput(text, path string) (string, error) {
	if text != "" && path != "" {
		return "", fmt.Errorf("--text and --in are mutually exclusive")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}
	return text, nil
}
