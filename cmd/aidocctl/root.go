package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/app"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/config"
	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	logpkg "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/logger"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

type ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	Reconcile(ctx context.Context) (ingestuc.ReconcileReport, error)
}

type retriever interface {
	Search(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error)
	Ask(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error)
}

type documentManager interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.WithChunks, error)
	Delete(ctx context.Context, id string) error
}

var (
	// env selects config/<env>.yaml; configPath overrides it.
	env        string
	configPath string
	logLevel   string

	ingestService    ingester
	retrievalService retriever
	documentService  documentManager
	// application is nil when services were injected directly.
	application *app.App

	// loadServices connects the configured backends. Tests replace it.
	loadServices = buildServices
)

// noServices marks commands that run without connecting any backend.
const noServices = "no-services"

var rootCmd = &cobra.Command{
	Use:   "aidocctl",
	Short: "Admin CLI for the aidoc document pipeline",
	Long: `aidocctl drives the aidoc ingestion and retrieval pipeline directly,
without going through the HTTP API. It reads the same configuration as the server.

Examples:
  # Ingest files
  aidocctl ingest handbook.pdf notes.md

  # Search and ask
  aidocctl search "refund policy" -k 5
  aidocctl ask "How long do refunds take?"

  # Watch an inbox directory
  aidocctl watch ./inbox

  # Serve the MCP tools over stdio
  aidocctl mcp`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[noServices] == "true" {
			return nil
		}
		return loadServices(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if application != nil {
			application.Close()
			application = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Environment; selects config/<env>.yaml")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (overrides --env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func buildServices(ctx context.Context) error {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("Services ready", zap.String("env", env))

	application = a
	ingestService = a.Ingest
	retrievalService = a.Retrieval
	documentService = a.Documents
	return nil
}

// requireApp returns the wired application for commands that need more
// than the service interfaces.
func requireApp() (*app.App, error) {
	if application == nil {
		return nil, fmt.Errorf("this command needs a configured backend")
	}
	return application, nil
}
