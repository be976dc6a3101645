// Command nl2sqld wires the NL2SQL pipeline components into a runnable
// CLI: given a natural-language question, it answers with safe, read-only
// SQL plus a summarized result.
//
// Grounded on theRebelliousNerd-codenerd/cmd/nerd/main.go: the
// rootCmd/PersistentPreRunE/global-flags structure, with flags limited to
// what this system's single "ask" command needs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nl2sql/pipeline/internal/config"
	"github.com/nl2sql/pipeline/internal/generator"
	"github.com/nl2sql/pipeline/internal/llm"
	"github.com/nl2sql/pipeline/internal/logging"
	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/pipeline"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/promptbuilder"
	"github.com/nl2sql/pipeline/internal/retriever"
	"github.com/nl2sql/pipeline/internal/schemaindex"
	"github.com/nl2sql/pipeline/internal/sqlstore"
	"github.com/nl2sql/pipeline/internal/summarizer"
	"github.com/nl2sql/pipeline/internal/validator"
)

var (
	metadataPath  string
	sqliteDSN     string
	vectorAddr    string
	vectorCollect string
	jsonOutput    bool
	verbose       bool

	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nl2sqld",
	Short: "Translate natural-language questions into safe, read-only SQL",
	Long: `nl2sqld answers a natural-language question against a known relational
schema: it plans which tables are relevant, retrieves schema context, asks
an LLM to generate SQL, validates it against a read-only safety gate,
executes it, and summarizes the result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := envOr("NL2SQL_LOG_LEVEL", "info")
		if verbose {
			level = "debug"
		}
		l, err := logging.NewZap(level)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one natural-language question",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metadataPath, "metadata", "", "path to the schema metadata JSON file (env NL2SQL_METADATA_PATH)")
	rootCmd.PersistentFlags().StringVar(&sqliteDSN, "sqlite-dsn", "", "SQLite DSN to query (env NL2SQL_SQLITE_DSN)")
	rootCmd.PersistentFlags().StringVar(&vectorAddr, "vector-store-addr", "", "Qdrant gRPC address for schema retrieval (env NL2SQL_VECTOR_STORE_ADDR; empty uses the metadata fallback)")
	rootCmd.PersistentFlags().StringVar(&vectorCollect, "vector-collection", "schema_chunks", "Qdrant collection name")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full result envelope as JSON")

	rootCmd.AddCommand(askCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildOrchestrator wires every stage's concrete implementation together
// from cfg, following the same dependency order the Orchestrator's stages
// run in.
func buildOrchestrator(cfg config.Config) (*pipeline.Orchestrator, *sqlstore.Store, error) {
	meta, err := metadata.Load(cfg.MetadataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load metadata: %w", err)
	}

	var provider llm.Provider
	if cfg.OpenAIAPIKey != "" {
		provider = llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel, cfg.EmbeddingModel)
	}

	var vectorStore schemaindex.VectorStore = schemaindex.NewFallbackVectorStore(meta)
	if cfg.VectorStoreAddr != "" && provider != nil {
		embed := func(ctx context.Context, text string) ([]float32, error) {
			vecs, err := provider.GenerateEmbeddings(ctx, []string{text})
			if err != nil {
				return nil, err
			}
			if len(vecs) == 0 {
				return nil, llm.ErrUnavailable
			}
			return vecs[0], nil
		}
		qs, err := schemaindex.NewQdrantVectorStore(cfg.VectorStoreAddr, vectorCollect, embed)
		if err != nil {
			logger.Warn("qdrant unavailable, falling back to metadata-derived schema index", "error", err)
		} else {
			vectorStore = qs
		}
	}
	index := schemaindex.New(vectorStore, meta)

	store, err := sqlstore.Open(cfg.SQLiteDSN, cfg.SQLRowLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	v := validator.New(meta, store)
	p := planner.New(meta)
	r := retriever.New(index, meta, cfg.TopKSchema, logger)
	history := promptbuilder.NewHistory(cfg.MaxHistory)
	builder := promptbuilder.New(meta, history, cfg.PromptTokenBudget)
	gen := generator.New(provider, builder, v, meta, cfg.MaxLLMAttempts, logger)
	summ := summarizer.New(meta)

	orch, err := pipeline.New(pipeline.Config{
		Planner:    p,
		Retriever:  r,
		Generator:  gen,
		Validator:  v,
		Executor:   store,
		Summarizer: summ,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build orchestrator: %w", err)
	}
	return orch, store, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	cfg := config.FromEnv()
	if metadataPath != "" {
		cfg.MetadataPath = metadataPath
	}
	if sqliteDSN != "" {
		cfg.SQLiteDSN = sqliteDSN
	}
	if vectorAddr != "" {
		cfg.VectorStoreAddr = vectorAddr
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	orch, store, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	res := orch.Run(ctx, question, nil)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !res.Success {
		fmt.Fprintf(os.Stdout, "Query failed: %s\nSQL attempted: %s\n", res.Error, res.SQL)
		return nil
	}
	fmt.Fprintf(os.Stdout, "SQL: %s\n\n%s\n", res.SQL, res.Summary)
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(os.Stdout, "\nSuggested follow-ups:")
		for _, s := range res.Suggestions {
			fmt.Fprintf(os.Stdout, "  - %s\n", s)
		}
	}
	return nil
}

func main() {
	rootCmd.SilenceUsage = true
	startedAt := time.Now()
	defer func() {
		if logger != nil {
			logger.Debug("nl2sqld exiting", "elapsed", time.Since(startedAt).String())
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
