// File: internal/browser/session.go
package browser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

// refsScript evaluates to the per-document ref registry. Refs are stamped into
// the DOM as a data attribute prefixed with a token unique to the document, so
// a ref issued before a navigation never resolves afterwards.
//
//go:embed js/refs.js
var refsScript string

//go:embed js/webdriver.js
var webdriverScript string

// RefAttribute is the DOM attribute carrying element refs.
const RefAttribute = "data-sv-ref"

// clickTimeout bounds a native click before falling back to a scripted one.
const clickTimeout = 5 * time.Second

// Session is a single browser tab implementing schemas.Page.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	mu       sync.Mutex
	isClosed bool
	onClose  func()
}

var _ schemas.Page = (*Session)(nil)

// refResult is the common shape returned by the registry's methods.
type refResult struct {
	Stale   bool     `json:"stale"`
	Refs    []string `json:"refs"`
	Text    string   `json:"text"`
	Value   string   `json:"value"`
	Present bool     `json:"present"`
}

func (s *Session) initialize(ctx context.Context) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	// Creates the tab and connects to it.
	if err := chromedp.Run(runCtx); err != nil {
		return fmt.Errorf("failed to connect to tab: %w", err)
	}
	if !s.cfg.HideWebdriver {
		return nil
	}
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(webdriverScript).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to inject webdriver script: %w", err)
	}
	return nil
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Load(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitForRoot(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %q after %s", schemas.ErrRootTimeout, selector, timeout)
	}
	return fmt.Errorf("waiting for %q: %w", selector, err)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return url, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("reading title: %w", err)
	}
	return strings.TrimSpace(title), nil
}

func (s *Session) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return "", fmt.Errorf("reading body text: %w", err)
	}
	return text, nil
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]schemas.ElementRef, error) {
	res, err := s.call(ctx, "findAll", nil, selector)
	if err != nil {
		return nil, err
	}
	return toRefs(res.Refs), nil
}

func (s *Session) FindWithin(ctx context.Context, scope schemas.ElementRef, selector string) ([]schemas.ElementRef, error) {
	res, err := s.call(ctx, "findAll", string(scope), selector)
	if err != nil {
		return nil, err
	}
	if res.Stale {
		return nil, fmt.Errorf("%w: %q", schemas.ErrElementStale, scope)
	}
	return toRefs(res.Refs), nil
}

func (s *Session) TextOf(ctx context.Context, ref schemas.ElementRef) (string, error) {
	res, err := s.callRef(ctx, "text", ref)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Session) AttributeOf(ctx context.Context, ref schemas.ElementRef, name string) (string, bool, error) {
	res, err := s.callRef(ctx, "attr", ref, name)
	if err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, ref schemas.ElementRef) error {
	_, err := s.callRef(ctx, "scroll", ref)
	return err
}

// Click performs a native mouse click on the element. Elements that never
// become visible get a scripted click instead.
func (s *Session) Click(ctx context.Context, ref schemas.ElementRef) error {
	if _, err := s.callRef(ctx, "exists", ref); err != nil {
		return err
	}

	sel := RefSelector(ref)
	clickCtx, cancel := context.WithTimeout(ctx, clickTimeout)
	err := s.run(clickCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Debug("Native click failed, using scripted click.", zap.String("ref", string(ref)), zap.Error(err))
	_, err = s.callRef(ctx, "click", ref)
	return err
}

// RefSelector is the CSS selector matching the element a ref was stamped on.
func RefSelector(ref schemas.ElementRef) string {
	return fmt.Sprintf(`[%s=%q]`, RefAttribute, string(ref))
}

func (s *Session) callRef(ctx context.Context, method string, ref schemas.ElementRef, args ...any) (refResult, error) {
	res, err := s.call(ctx, method, append([]any{string(ref)}, args...)...)
	if err != nil {
		return res, err
	}
	if res.Stale {
		return res, fmt.Errorf("%w: %q", schemas.ErrElementStale, ref)
	}
	return res, nil
}

// call invokes a registry method with JSON-encoded arguments.
func (s *Session) call(ctx context.Context, method string, args ...any) (refResult, error) {
	var res refResult
	expr, err := registryCall(method, args...)
	if err != nil {
		return res, err
	}
	if err := s.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return res, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

func registryCall(method string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		b, err := jsoniter.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("encoding argument %d of %s: %w", i, method, err)
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s).%s(%s)", strings.TrimSpace(refsScript), method, strings.Join(encoded, ", ")), nil
}

func toRefs(raw []string) []schemas.ElementRef {
	refs := make([]schemas.ElementRef, len(raw))
	for i, r := range raw {
		refs[i] = schemas.ElementRef(r)
	}
	return refs
}

// CombineContext returns a context carrying parentCtx's values that is
// cancelled when either context is done.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)
	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()
	return combinedCtx, cancel
}
