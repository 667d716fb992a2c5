package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"helpdesk/config"
	"helpdesk/internal/adapter/embedding"
	"helpdesk/internal/adapter/generation"
	"helpdesk/internal/adapter/index"
	"helpdesk/internal/adapter/ticket"
	"helpdesk/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Knowledge-base retrieval and escalation pipeline for the support bot",
	Long: `helpdesk ingests knowledge-base text into a vector collection, answers
questions from it, and escalates what it cannot answer into the human
support-ticket queue.

Example usage:
  helpdesk ingest ./kb              # Chunk, embed, and index knowledge-base files
  helpdesk ask -q "refund window"   # Answer from the knowledge base or open a ticket
  helpdesk collection sample        # Inspect indexed entries`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = newLogger(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./helpdesk.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func buildEmbedder() (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(embedding.Options{
			Model:     e.Model,
			BaseURL:   e.BaseURL,
			Dimension: e.Dimension,
			BatchSize: e.BatchSize,
			Timeout:   time.Duration(e.TimeoutSecs) * time.Second,
		}), nil
	case "openai", "":
		return embedding.NewOpenAIEmbedder(embedding.Options{
			APIKeyEnv: e.APIKeyEnv,
			Model:     e.Model,
			BaseURL:   e.BaseURL,
			Dimension: e.Dimension,
			BatchSize: e.BatchSize,
			Timeout:   time.Duration(e.TimeoutSecs) * time.Second,
		})
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
}

func openIndex(embedder port.Embedder) (port.VectorIndex, error) {
	c := cfg.Collection
	switch c.Backend {
	case "memory":
		return index.NewMemoryIndex(), nil
	case "pgvector":
		dsn := os.Getenv(c.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("pgvector backend needs a DSN in environment variable %s", c.DSNEnv)
		}
		return index.OpenPg(dsn, c.Name, embedder.Dimension())
	case "bolt", "":
		path := c.Path
		if path == "" {
			if err := config.EnsureDataDir(rootDir); err != nil {
				return nil, err
			}
			path = config.IndexDBPath(rootDir)
		}
		return index.OpenBolt(path, c.Name)
	}
	return nil, fmt.Errorf("unknown collection backend: %s", c.Backend)
}

// buildTickets returns nil when no ticket store is configured; the
// escalation policy then reports escalation as unavailable instead of
// dropping questions.
func buildTickets() (port.TicketService, error) {
	dsn := os.Getenv(cfg.Tickets.DSNEnv)
	if dsn == "" {
		return nil, nil
	}
	return ticket.Open(dsn, logger)
}

func buildGenerator() (port.Generator, error) {
	g := cfg.Generation
	return generation.NewOpenAIGenerator(generation.Options{
		APIKeyEnv: g.APIKeyEnv,
		Model:     g.Model,
		BaseURL:   g.BaseURL,
		Timeout:   time.Duration(g.TimeoutSecs) * time.Second,
	})
}
