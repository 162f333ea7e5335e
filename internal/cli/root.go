package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/pipeline"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	sourceArg string
	pivotArg  string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulelens",
	Short: "rulelens - consolidated views of tabular translation rules",
	Long: `rulelens loads a table of translation rules, filters it by a primary
event and a set of secondary attributes, and collapses rows that produce
identical output values into a single rule with merged input conditions.

Columns before the pivot column (default "WY event") are input conditions;
the pivot column and every column after it are outputs.

rulelens is a lens, not an editor: the source table is never modified.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of rulelens.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rulelens %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.rulelens/config.yaml)")
	flags.StringVar(&sourceArg, "source", "", "rule table path or http(s) URL (default: translation_rules.csv)")
	flags.StringVar(&pivotArg, "pivot", "", `pivot column, the first output column (default: "WY event")`)
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&logLevel, "log-level", "", fmt.Sprintf("log level (%s)", strings.Join(log.Levels, ", ")))
	flags.StringVar(&logFormat, "log-format", "", fmt.Sprintf("log format (%s)", strings.Join(log.Formats, ", ")))

	// Bind flags to viper
	_ = viper.BindPFlag("source.path", flags.Lookup("source"))
	_ = viper.BindPFlag("source.pivot", flags.Lookup("pivot"))
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	setDefaults(viper.GetViper(), model.DefaultConfig())

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".rulelens"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// RULELENS_SOURCE_PATH, RULELENS_LLM_PROVIDER, ...
	viper.SetEnvPrefix("RULELENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables are honored by Unmarshal.
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("source.path", cfg.Source.Path)
	v.SetDefault("source.pivot", cfg.Source.Pivot)
	v.SetDefault("source.drop_columns", cfg.Source.DropColumns)
	v.SetDefault("source.format", cfg.Source.Format)

	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	v.SetDefault("http.max_retries", cfg.HTTP.MaxRetries)
	v.SetDefault("http.respect_robots", cfg.HTTP.RespectRobots)
	v.SetDefault("http.insecure_tls", cfg.HTTP.InsecureTLS)
	v.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", cfg.HTTP.NoProxy)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", cfg.Cache.CleanupInterval)

	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("output.include_footer", cfg.Output.IncludeFooter)
	v.SetDefault("output.color", cfg.Output.Color)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)

	v.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.strict_values", cfg.LLM.StrictValues)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
}

// loadConfig resolves the effective configuration: flags, RULELENS_*
// environment, config file, then defaults.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	applyProviderEnv(&cfg.LLM)
	return cfg, nil
}

// applyProviderEnv falls back to the providers' conventional environment variables
func applyProviderEnv(cfg *model.LLMConfig) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg := model.LogConfig{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	}
	if verbose && !cmd.Flags().Changed("log-level") {
		cfg.Level = "info"
	}

	logger, err := log.New(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(log.NewContext(cmd.Context(), logger))
	return nil
}

// openPipeline builds the pipeline from the effective configuration and loads
// the rule table. Any error here is fatal for the command.
func openPipeline(ctx context.Context, mutate func(*model.Config)) (*pipeline.Pipeline, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	return p, nil
}
