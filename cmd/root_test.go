// File: cmd/root_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sitevoice/internal/config"
)

// TestRootCmd_VersionFlag tests if the --version flag works correctly.
func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "sitevoice version "+Version)
}

// TestRootCmd_NoArgs tests the behavior when no arguments are provided.
func TestRootCmd_NoArgs(t *testing.T) {
	out, err := execute(t)

	require.NoError(t, err)
	assert.Contains(t, out, "SiteVoice is a voice assistant")
	for _, sub := range []string{"run", "probe", "inspect", "resolve"} {
		assert.Contains(t, out, sub)
	}
}

// configProbe is a throwaway subcommand that captures the loaded config.
func configProbe(got **config.Config) *cobra.Command {
	c := &cobra.Command{
		Use: "show-config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			*got = cfg
			return err
		},
	}
	c.Flags().String("site", "", "")
	c.Flags().String("control-addr", "", "")
	return c
}

func runWithConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	resetForTest(t)
	var cfg *config.Config
	rootCmd.AddCommand(configProbe(&cfg))
	rootCmd.SetArgs(append([]string{"--env-file", "", "show-config"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return cfg, err
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := runWithConfig(t)
		require.NoError(t, err)
		assert.Equal(t, "https://www.ikf.co.in/", cfg.Site.BaseURL)
		assert.False(t, cfg.Control.Enabled)
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cfg, err := runWithConfig(t, "--site", "https://example.test/", "--control-addr", "127.0.0.1:9999")
		require.NoError(t, err)
		assert.Equal(t, "https://example.test/", cfg.Site.BaseURL)
		assert.True(t, cfg.Control.Enabled, "an explicit address turns the control server on")
		assert.Equal(t, "127.0.0.1:9999", cfg.Control.Addr)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("SITEVOICE_ENGINE_QUEUE_SIZE", "9")
		cfg, err := runWithConfig(t)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Engine.QueueSize)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sitevoice.yaml")
		require.NoError(t, os.WriteFile(path, []byte("site:\n  company_name: Acme\nagent:\n  memory_size: 4\n  prompt_history: 2\n"), 0o600))

		cfg, err := runWithConfig(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "Acme", cfg.Site.CompanyName)
		assert.Equal(t, 4, cfg.Agent.MemorySize)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		_, err := runWithConfig(t, "--site", "not a url")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
	})

	t.Run("dotenv supplies the api key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GROQ_API_KEY=gsk_from_dotenv\n"), 0o600))

		resetForTest(t)
		// dotenv never overrides a variable that is already set, even to "".
		require.NoError(t, os.Unsetenv("GROQ_API_KEY"))
		var cfg *config.Config
		rootCmd.AddCommand(configProbe(&cfg))
		rootCmd.SetArgs([]string{"--env-file", path, "show-config"})
		require.NoError(t, rootCmd.ExecuteContext(context.Background()))
		assert.Equal(t, "gsk_from_dotenv", cfg.Agent.LLM.APIKey)
	})
}
