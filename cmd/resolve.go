// File: cmd/resolve.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sitevoice/internal/agent"
)

func newResolveCmd() *cobra.Command {
	var reply, utterance string
	var explain, asJSON bool

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which browser actions a reply and utterance would trigger.",
		Long: `Runs the action resolver offline. Nothing is opened or executed; the actions
are printed in the order a live session would run them.`,
		Example: `  sitevoice resolve --utterance "apply for the ai intern role"
  sitevoice resolve --reply "Let me take you to our career page." --utterance "any jobs?" --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(reply) == "" && strings.TrimSpace(utterance) == "" {
				return fmt.Errorf("at least one of --reply or --utterance is required")
			}

			actions, rules := agent.ResolveExplained(reply, utterance, cfg.Site.Pages)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), actions)
			}
			out := cmd.OutOrStdout()
			if len(actions) == 0 {
				fmt.Fprintln(out, "No actions.")
				return nil
			}
			for i, action := range actions {
				if explain {
					fmt.Fprintf(out, "%d. %s  (%s)\n", i+1, action, rules[i])
				} else {
					fmt.Fprintf(out, "%d. %s\n", i+1, action)
				}
			}
			return nil
		},
	}

	resolveCmd.Flags().StringVar(&reply, "reply", "", "the assistant's reply text")
	resolveCmd.Flags().StringVar(&utterance, "utterance", "", "what the user said")
	resolveCmd.Flags().BoolVar(&explain, "explain", false, "name the rule behind each action")
	resolveCmd.Flags().BoolVar(&asJSON, "json", false, "print the actions as JSON")
	return resolveCmd
}
