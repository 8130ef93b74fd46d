// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/agent"
	"github.com/xkilldash9x/sitevoice/internal/browser"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/control"
	"github.com/xkilldash9x/sitevoice/internal/engine"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/llmclient"
	"github.com/xkilldash9x/sitevoice/internal/observability"
	"github.com/xkilldash9x/sitevoice/internal/speech"
)

// Function variables for dependency injection in tests.
var (
	newLLMClient = llmclient.NewClient
)

const shutdownTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Open the website and start a voice session.",
		Long: `Opens the configured website in a browser, checks that the language model
is reachable, greets the user and then handles spoken requests until the user
says goodbye or the process is interrupted.

With --input console every line typed on stdin is one push-to-talk window.
With --input command the recorder and recognizer are external commands, and
push-to-talk is driven through the HTTP control server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAssistant(ctx, cfg, observability.GetLogger(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	runCmd.Flags().String("site", "", "base URL of the website to assist with")
	runCmd.Flags().String("company", "", "company name used in prompts and greetings")
	runCmd.Flags().Bool("headless", true, "run the browser without a window")
	runCmd.Flags().String("input", "console", "speech input: console or command")
	runCmd.Flags().Bool("voice", false, "speak replies with the configured TTS command")
	runCmd.Flags().String("control-addr", "", "serve the HTTP control API on this address")
	runCmd.Flags().String("provider", "", "inference provider: groq or gemini")
	runCmd.Flags().String("model", "", "inference model name")
	return runCmd
}

// runAssistant wires the live browser and inference client, then runs a session.
func runAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) error {
	if err := cfg.Agent.LLM.RequireCredentials(); err != nil {
		return err
	}

	llm, err := newLLMClient(ctx, cfg.Agent.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}
	defer llm.Close()

	if err := llm.Ping(ctx); err != nil {
		return fmt.Errorf("inference connectivity check failed: %w", err)
	}

	manager, err := browser.NewManager(ctx, logger, cfg.Browser, cfg.Network.LaunchTimeout)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown incomplete.", zap.Error(err))
		}
	}()

	page, err := manager.NewSession(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	speaker := &transcriptSpeaker{out: out, next: speech.NewSpeaker(logger, cfg.Speech.Voice)}
	a, err := agent.New(logger, cfg, llm, page, extractor.New(logger, cfg.Network.RootWait), speaker)
	if err != nil {
		return err
	}
	return session(ctx, cfg, logger, a, in)
}

// session opens the site, greets the user and serves turns until the
// session ends, the input is exhausted or ctx is cancelled.
func session(ctx context.Context, cfg *config.Config, logger *zap.Logger, a *agent.Agent, in io.Reader) error {
	logger = logger.With(zap.String("session_id", a.ID()))

	if err := a.Open(ctx); err != nil {
		// The session still works; extraction falls back to the home context.
		logger.Warn("Could not open the website.", zap.String("url", cfg.Site.BaseURL), zap.Error(err))
	}
	a.Welcome(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := engine.NewTurnQueue(logger, cfg.Engine.QueueSize, func(ctx context.Context, utterance string) bool {
		return a.HandleUtterance(ctx, utterance).Continue
	})
	queue.Start(runCtx)
	defer queue.Stop()

	listener, transcriber := speechInput(logger, cfg.Speech, in)
	ptt := speech.NewPushToTalk(logger, cfg.Speech, listener, transcriber, queue, a.Session())

	controlCfg := cfg.Control
	if cfg.Speech.Input == "command" && !controlCfg.Enabled {
		logger.Info("Command input is driven over HTTP; enabling the control server.", zap.String("address", controlCfg.Addr))
		controlCfg.Enabled = true
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		select {
		case <-queue.Done():
			logger.Info("Session ended.")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if cfg.Speech.Input == "console" {
		g.Go(func() error {
			err := ptt.RunConsole(gctx)
			// Finish whatever is queued before tearing down.
			queue.Stop()
			cancel()
			return err
		})
	}

	if controlCfg.Enabled {
		srv := control.NewServer(gctx, logger, controlCfg, a, ptt)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}

	return g.Wait()
}

func speechInput(logger *zap.Logger, cfg config.SpeechConfig, in io.Reader) (schemas.Listener, schemas.Transcriber) {
	if cfg.Input == "command" {
		return speech.NewCommandListener(logger, cfg.RecordCommand), speech.NewCommandTranscriber(logger, cfg.TranscribeCommand)
	}
	return speech.NewConsoleListener(logger, in), speech.TextTranscriber{}
}

// transcriptSpeaker prints every reply before handing it to the voice.
type transcriptSpeaker struct {
	out  io.Writer
	next schemas.Speaker
}

func (s *transcriptSpeaker) Speak(ctx context.Context, text string) error {
	fmt.Fprintf(s.out, "Assistant: %s\n", text)
	return s.next.Speak(ctx, text)
}
