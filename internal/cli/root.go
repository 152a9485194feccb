// Package cli implements the optsearch command line: one-shot queries
// against a catalog file and change notifications for running services.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/contributor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/logger"
)

var (
	configPath  string
	catalogPath string
	jsonOutput  bool
)

// Services holds what the query commands run against. Tests install their
// own before executing rootCmd.
type Services struct {
	Config      *config.Config
	Roots       []*configurable.Configurable
	Executor    *executor.Executor
	Highlighter *highlight.Highlighter
}

var services *Services

var rootCmd = &cobra.Command{
	Use:   "optsearch",
	Short: "Query a searchable options catalog",
	Long: `optsearch builds the options index from a catalog file and answers
searches, inner path lookups and highlighting from the command line.
It can also notify running services that the options have changed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to catalog file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	if services != nil && services.Config != nil {
		return services.Config, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Index.CatalogPath = catalogPath
	}
	// Logs go to stderr so JSON output stays parseable.
	slog.SetDefault(logger.New(os.Stderr, cfg.Logging.Level, "text"))
	return cfg, nil
}

func loadServices() (*Services, error) {
	if services != nil {
		return services, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	svc, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	services = svc
	return svc, nil
}

// NewServices loads the catalog named by cfg and wires an index engine,
// executor and highlighter over it.
func NewServices(cfg *config.Config) (*Services, error) {
	catalog, err := contributor.LoadCatalog(cfg.Index.CatalogPath)
	if err != nil {
		return nil, err
	}
	tok := tokenizer.New(tokenizer.LoadStopWordsOrEmpty(cfg.Index.StopWordsPath), tokenizer.SnowballStem)
	engine := indexer.NewEngine(cfg.Index, tok, nil, catalog)
	return &Services{
		Config:      cfg,
		Roots:       catalog.Roots(),
		Executor:    executor.New(engine, parser.New(cfg.Search), nil),
		Highlighter: highlight.New(tok),
	}, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
