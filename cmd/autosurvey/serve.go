package main

import (
	"context"
	"os"

	"github.com/jonathan/autosurvey/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes per-session drafting, feedback and history endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logger := newLogger(cfg, true)
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:       cfg.Port,
		Components: a.components(),
		Ceiling:    cfg.RevisionCeiling,
		SessionTTL: cfg.SessionTTLDuration(),
		Logger:     logger,
		OnShutdown: a.Close,
	})
	return srv.Start()
}
