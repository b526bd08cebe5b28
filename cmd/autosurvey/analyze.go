package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/autosurvey/internal/extraction"
	"github.com/jonathan/autosurvey/internal/keywords"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/observability"
	"github.com/jonathan/autosurvey/internal/retrieval"
	"github.com/jonathan/autosurvey/internal/types"
	"github.com/spf13/cobra"
)

var (
	analyzeText string
	analyzeIn   string
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract the requirement record and retrieval parameters from a request",
	Long:  `Runs keyword mining and requirement extraction, then prints the tuned retrieval parameters and query. No retrieval or generation is performed.`,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "", "Survey request text")
	analyzeCmd.Flags().StringVarP(&analyzeIn, "in", "i", "", "Path to a file holding the survey request")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// Analysis is the output of the analyze command.
type Analysis struct {
	Keywords    []string                 `json:"keywords"`
	Requirement *types.RequirementRecord `json:"requirement"`
	Params      types.RetrievalParams    `json:"retrieval_params"`
	Query       string                   `json:"query"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	text, err := readInput(analyzeText, analyzeIn)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("request text is required (use --text or --in)")
	}

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required (use --api-key flag or GEMINI_API_KEY env var)")
	}
	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	analysis, err := analyze(ctx, text, keywords.NewExtractor(cfg.KeywordCount),
		extraction.NewExtractor(llm.WithTimeout(client, cfg.CallTimeoutDuration()), logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(analysis)
	}

	p := observability.NewPrinter(out)
	p.PrintKeywords(analysis.Keywords)
	p.PrintRequirement(analysis.Requirement)
	p.PrintRetrieval(analysis.Params, analysis.Query)
	return nil
}

type requirementExtractor interface {
	Extract(ctx context.Context, rawText string, keywords []string) (*types.RequirementRecord, error)
}

func analyze(ctx context.Context, text string, kw *keywords.Extractor, extractor requirementExtractor) (*Analysis, error) {
	mined := kw.Extract(text)
	record, err := extractor.Extract(ctx, text, mined)
	if err != nil {
		return nil, fmt.Errorf("requirement extraction failed: %w", err)
	}
	return &Analysis{
		Keywords:    mined,
		Requirement: record,
		Params:      retrieval.Tune(record),
		Query:       retrieval.BuildQuery(record),
	}, nil
}
