// File: cmd/inspect.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/browser"
	"github.com/xkilldash9x/sitevoice/internal/browser/snapshot"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newInspectCmd() *cobra.Command {
	var htmlFile string
	var static bool

	inspectCmd := &cobra.Command{
		Use:   "inspect [url]",
		Short: "Extract a page the way the assistant sees it and print it as JSON.",
		Long: `Loads a page and prints the extracted content: page type, headings,
navigation, job listings, apply buttons and forms.

The page is rendered in the browser by default. --static fetches it over plain
HTTP without running scripts, and --html reads a saved document instead. With
--html the optional URL only decides how the page is classified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			target := ""
			if len(args) == 1 {
				target = args[0]
			}

			var content schemas.PageContent
			switch {
			case htmlFile != "":
				if target == "" {
					abs, err := filepath.Abs(htmlFile)
					if err != nil {
						return fmt.Errorf("resolving %s: %w", htmlFile, err)
					}
					target = "file://" + filepath.ToSlash(abs)
				}
				content, err = inspectSnapshot(ctx, cfg, logger, snapshot.FileSource(htmlFile), target)
			case target == "":
				return fmt.Errorf("a URL or --html file is required")
			case static:
				content, err = inspectSnapshot(ctx, cfg, logger, snapshot.HTTPSource{UserAgent: cfg.Browser.UserAgent}, target)
			default:
				content, err = inspectLive(ctx, cfg, logger, target)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), content)
		},
	}

	inspectCmd.Flags().StringVar(&htmlFile, "html", "", "read the page from a saved HTML file")
	inspectCmd.Flags().BoolVar(&static, "static", false, "fetch the page over HTTP without a browser")
	inspectCmd.Flags().Bool("headless", true, "run the browser without a window")
	return inspectCmd
}

func inspectSnapshot(ctx context.Context, cfg *config.Config, logger *zap.Logger, source snapshot.Source, target string) (schemas.PageContent, error) {
	page := snapshot.New(source, logger)
	if err := page.Load(ctx, target); err != nil {
		return schemas.PageContent{}, err
	}
	return extractor.New(logger, cfg.Network.RootWait).Extract(ctx, page), nil
}

func inspectLive(ctx context.Context, cfg *config.Config, logger *zap.Logger, target string) (schemas.PageContent, error) {
	manager, err := browser.NewManager(ctx, logger, cfg.Browser, cfg.Network.LaunchTimeout)
	if err != nil {
		return schemas.PageContent{}, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = manager.Shutdown(shutdownCtx)
	}()

	page, err := manager.NewSession(ctx)
	if err != nil {
		return schemas.PageContent{}, err
	}
	defer page.Close()

	if err := page.Load(ctx, target); err != nil {
		return schemas.PageContent{}, err
	}
	if err := page.WaitForRoot(ctx, "body", cfg.Network.InitialLoadWait); err != nil {
		logger.Warn("Page body did not appear in time.", zap.String("url", target), zap.Error(err))
	}
	return extractor.New(logger, cfg.Network.RootWait).Extract(ctx, page), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
