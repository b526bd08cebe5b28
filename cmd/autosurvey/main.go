// Package main provides the autosurvey CLI: interactive questionnaire
// drafting, the REST API server and corpus ingestion.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var rootCmd = &cobra.Command{
	Use:   "autosurvey",
	Short: "Draft and revise survey questionnaires from free-text requirements",
	Long: `autosurvey turns a free-text survey request into a draft questionnaire:
requirement extraction -> reference retrieval -> domain classification -> generation,
followed by feedback-driven revisions until the draft is approved.

Configuration can be loaded from a JSON or YAML file using --config. Flags and
environment variables (GEMINI_API_KEY, DATABASE_URL, AUTOSURVEY_LOG_FILE) override file values.`,
	SilenceUsage: true,
}

var (
	flagConfigPath  string
	flagAPIKey      string
	flagDatabaseURL string
	flagCorpusDir   string
	flagLogFile     string
	flagVerbose     bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "Path to config file (.json, .yaml or .yml)")
	pf.StringVar(&flagAPIKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY env var)")
	pf.StringVar(&flagDatabaseURL, "db-url", "", "PostgreSQL connection URL for the reference corpus (defaults to DATABASE_URL env var)")
	pf.StringVar(&flagCorpusDir, "corpus", "", "Directory of reference questionnaires to index in memory when no database is used")
	pf.StringVar(&flagLogFile, "log-file", "", "Write JSON logs to this file (rotated)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Print debug logs and intermediate results")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
