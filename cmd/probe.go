// File: cmd/probe.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sitevoice/internal/observability"
)

func newProbeCmd() *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the inference provider is reachable with the configured key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			llmCfg := cfg.Agent.LLM
			if err := llmCfg.RequireCredentials(); err != nil {
				return err
			}

			llm, err := newLLMClient(ctx, llmCfg, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to create inference client: %w", err)
			}
			defer llm.Close()

			if err := llm.Ping(ctx); err != nil {
				return fmt.Errorf("inference connectivity check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inference API reachable (%s, %s).\n", llmCfg.Provider, llmCfg.Model)
			return nil
		},
	}
	probeCmd.Flags().String("provider", "", "inference provider: groq or gemini")
	probeCmd.Flags().String("model", "", "inference model name")
	return probeCmd
}
