// File: internal/browser/manager.go
// Package browser drives the target website in a real Chrome instance through
// chromedp and exposes each tab as a schemas.Page.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/internal/config"
)

// DefaultUserAgent is presented when the configuration does not name one.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Manager owns the Chrome process. Every Session is a tab derived from it.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process; browserCtx is the first tab,
	// which keeps the process alive for as long as the manager runs.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	wg sync.WaitGroup
}

// NewManager launches Chrome and verifies it responds within launchTimeout.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig, launchTimeout time.Duration) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx, launchTimeout); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context, launchTimeout time.Duration) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, AllocatorOptions(m.cfg)...)

	var ctxOpts []chromedp.ContextOption
	if m.cfg.Debug {
		sugar := m.logger.Sugar()
		ctxOpts = append(ctxOpts, chromedp.WithLogf(sugar.Debugf), chromedp.WithErrorf(sugar.Errorf))
	}
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx, ctxOpts...)

	// The first Run allocates the process, so it must not carry a deadline.
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.cancel()
		return fmt.Errorf("browser failed to start: %w", err)
	}

	testCtx, cancelTest := withOptionalTimeout(m.browserCtx, launchTimeout)
	defer cancelTest()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.cancel()
		return fmt.Errorf("browser failed to respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// AllocatorOptions assembles the exec allocator options for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// allocatorFlags is applied after chromedp's defaults, so any name here
// overrides the default value. A false bool drops the flag entirely.
func allocatorFlags(cfg config.BrowserConfig, goos string) map[string]any {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	flags := map[string]any{
		"enable-automation":         false,
		"headless":                  cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"disable-extensions":        true,
		"disable-gpu":               cfg.Headless,
		"user-agent":                ua,
	}
	if cfg.HideWebdriver {
		flags["disable-blink-features"] = "AutomationControlled"
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	if goos == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}
	return flags
}

// NewSession opens a new tab and prepares it for driving.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(m.browserCtx)
	s := &Session{
		ctx:    tabCtx,
		cancel: cancel,
		logger: m.logger.Named("session"),
		cfg:    m.cfg,
	}
	if err := s.initialize(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize browser session: %w", err)
	}

	m.wg.Add(1)
	s.onClose = m.wg.Done
	return s, nil
}

// Shutdown waits for open sessions to close, up to ctx's deadline, and then
// terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.cancel()
	<-m.allocatorCtx.Done()
	return nil
}

func (m *Manager) cancel() {
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
}

// withOptionalTimeout treats a non-positive duration as no deadline.
func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
