package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/additivelens/additivelens/internal/model"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.3.0"

const envPrefix = "ADDITIVELENS"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "additivelens",
	Short: "AdditiveLens - find food additives in ingredient label text",
	Long: `AdditiveLens matches the text of a food ingredient label against a catalog
of additives, tolerating the noise OCR introduces: garbled syllables,
missing spaces, lookalike digits and letters.

Text comes from a command line argument, a file, a label photo read by a
vision model, or the HTTP API. Every match carries its catalog hazard level.

AdditiveLens reports what the label appears to contain. It does not judge
whether a product is safe.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of AdditiveLens.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "additivelens %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.additivelens/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("catalog", "", "catalog source (file, bolt, postgres, blob, fallback)")
	flags.String("catalog-path", "", "catalog file or bolt database path")
	flags.String("ocr", "", "OCR provider (openai, anthropic, ollama, static)")
	flags.String("ocr-model", "", "OCR model name")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("output.log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("output.log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("catalog.source", flags.Lookup("catalog"))
	_ = viper.BindPFlag("catalog.path", flags.Lookup("catalog-path"))
	_ = viper.BindPFlag("ocr.provider", flags.Lookup("ocr"))
	_ = viper.BindPFlag("ocr.model", flags.Lookup("ocr-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".additivelens"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ADDITIVELENS_* (ocr.api_key -> ADDITIVELENS_OCR_API_KEY)
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// optionalKeys are left out of the default YAML but must still be visible to
// AutomaticEnv, which only resolves keys viper already knows
var optionalKeys = []string{
	"catalog.path",
	"catalog.dsn",
	"catalog.blob.connection_string",
	"catalog.blob.container",
	"catalog.blob.key",
	"ocr.api_key",
	"ocr.base_url",
	"ocr.static_text",
	"ocr.http_proxy",
	"ocr.https_proxy",
}

// setDefaults registers every field of cfg as a viper default
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)

	for _, key := range optionalKeys {
		_ = v.BindEnv(key, envName(key))
	}
	return nil
}

// envName maps a config key to its variable: ocr.api_key -> ADDITIVELENS_OCR_API_KEY
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loadConfig resolves the configuration from defaults, config file,
// environment and flags, then fills provider credentials from their
// conventional variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyProviderEnv(&cfg.OCR)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyProviderEnv falls back to the variables each provider's own tooling uses
func applyProviderEnv(ocr *model.OCRConfig) {
	switch strings.ToLower(ocr.Provider) {
	case "openai":
		if ocr.APIKey == "" {
			ocr.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if ocr.APIKey == "" {
			ocr.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if ocr.BaseURL == "" {
			ocr.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine-readable.
func newLogger(cfg model.OutputConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
