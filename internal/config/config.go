// Package config holds the process-wide Config struct, loaded from
// environment variables with the teacher's pervasive struct-plus-validate
// idiom (e.g. ai/rag/pipeline.go's PipelineConfig.validate()).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every item enumerated in SPEC_FULL.md §6, plus the ambient
// fields (logging, timeouts, LLM/vector-store endpoints) a production
// deployment needs that the distilled spec leaves implicit.
type Config struct {
	// Pipeline behavior.
	MaxRetries        int
	SQLRowLimit       int
	MaxLLMAttempts    int
	MaxHistory        int
	TopKSchema        int
	PromptTokenBudget int

	// Data sources.
	MetadataPath    string
	VectorStoreAddr string

	// LLM provider.
	LLMModel        string
	EmbeddingModel  string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	LLMConcurrency  int

	// Ambient.
	LogLevel       string
	RequestTimeout time.Duration
	SQLiteDSN      string
}

// Defaults returns a Config with every spec-mandated default applied,
// SQLiteDSN set to a read-only "nl2sql.db" in the working directory, and no
// MetadataPath or API keys set; callers must fill those from the environment
// or their own wiring before calling Validate.
func Defaults() Config {
	return Config{
		MaxRetries:        2,
		SQLRowLimit:       200,
		MaxLLMAttempts:    3,
		MaxHistory:        3,
		TopKSchema:        3,
		PromptTokenBudget: 6000,
		LLMModel:          "gpt-4o-mini",
		EmbeddingModel:    "text-embedding-3-small",
		LLMConcurrency:    4,
		LogLevel:          "info",
		RequestTimeout:    30 * time.Second,
		SQLiteDSN:         "file:nl2sql.db?mode=ro",
	}
}

// FromEnv builds a Config starting from Defaults and overriding any field
// whose environment variable is set.
func FromEnv() Config {
	c := Defaults()
	c.MaxRetries = envInt("NL2SQL_MAX_RETRIES", c.MaxRetries)
	c.SQLRowLimit = envInt("NL2SQL_SQL_ROW_LIMIT", c.SQLRowLimit)
	c.MaxLLMAttempts = envInt("NL2SQL_MAX_LLM_ATTEMPTS", c.MaxLLMAttempts)
	c.MaxHistory = envInt("NL2SQL_MAX_HISTORY", c.MaxHistory)
	c.TopKSchema = envInt("NL2SQL_TOP_K_SCHEMA", c.TopKSchema)
	c.PromptTokenBudget = envInt("NL2SQL_PROMPT_TOKEN_BUDGET", c.PromptTokenBudget)
	c.LLMConcurrency = envInt("NL2SQL_LLM_CONCURRENCY", c.LLMConcurrency)

	c.MetadataPath = envString("NL2SQL_METADATA_PATH", c.MetadataPath)
	c.VectorStoreAddr = envString("NL2SQL_VECTOR_STORE_ADDR", c.VectorStoreAddr)
	c.LLMModel = envString("NL2SQL_LLM_MODEL", c.LLMModel)
	c.EmbeddingModel = envString("NL2SQL_EMBEDDING_MODEL", c.EmbeddingModel)
	c.OpenAIAPIKey = envString("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envString("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.LogLevel = envString("NL2SQL_LOG_LEVEL", c.LogLevel)
	c.SQLiteDSN = envString("NL2SQL_SQLITE_DSN", c.SQLiteDSN)

	if d := envString("NL2SQL_REQUEST_TIMEOUT", ""); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			c.RequestTimeout = parsed
		}
	}
	return c
}

// Validate applies sanity checks and returns a FatalConfigError-shaped error
// for anything that would make per-request processing unsafe. Called once at
// process init; never per-request.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.SQLRowLimit <= 0 {
		return fmt.Errorf("config: sql_row_limit must be > 0, got %d", c.SQLRowLimit)
	}
	if c.MaxLLMAttempts <= 0 {
		return fmt.Errorf("config: max_llm_attempts must be > 0, got %d", c.MaxLLMAttempts)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("config: max_history must be >= 0, got %d", c.MaxHistory)
	}
	if c.TopKSchema <= 0 {
		return fmt.Errorf("config: top_k_schema must be > 0, got %d", c.TopKSchema)
	}
	if c.MetadataPath == "" {
		return fmt.Errorf("config: metadata_path is required")
	}
	if c.LLMConcurrency <= 0 {
		return fmt.Errorf("config: llm_concurrency must be > 0, got %d", c.LLMConcurrency)
	}
	return nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envString(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
