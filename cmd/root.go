// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

var (
	cfgFile string
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCommand()

// NewRootCommand builds a fresh command tree. Flags are not shared between
// trees, so tests can execute one per case.
func NewRootCommand() *cobra.Command {
	// Version is set at build time. See cmd/version.go.
	cmd := &cobra.Command{
		Use:               "sitevoice",
		Short:             "SiteVoice is a voice assistant that drives a company website for you.",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./sitevoice.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file holding API keys")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newResolveCmd())
	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// loadConfig runs before every subcommand: it reads configuration, sets up
// logging and stores the validated config in the command context.
func loadConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)

	if err := initializeConfig(cmd, v); err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "sitevoice"})
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "sitevoice"})
		return fmt.Errorf("failed to load or validate config: %w", err)
	}

	observability.InitializeLogger(cfg.Logger)
	observability.GetLogger().Debug("Starting SiteVoice", zap.String("version", Version))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey, cfg))
	return nil
}

// initializeConfig reads the config file, the dotenv file and SITEVOICE_*
// environment variables, then binds the flags of cmd.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading env file %s: %w", envFile, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sitevoice")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SITEVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	return bindFlags(cmd, v)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "logger.level",
	"site":         "site.base_url",
	"company":      "site.company_name",
	"headless":     "browser.headless",
	"input":        "speech.input",
	"voice":        "speech.voice.enabled",
	"control-addr": "control.addr",
	"provider":     "agent.llm.provider",
	"model":        "agent.llm.model",
}

// bindFlags binds every flag of cmd that has a configuration key. Only flags
// set on the command line take precedence over file and environment values.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	if flag := cmd.Flags().Lookup("control-addr"); flag != nil && flag.Changed {
		v.Set("control.enabled", true)
	}
	return nil
}

// getConfigFromContext returns the config stored by loadConfig.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}
