// internal/agent/executors.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// ContentExtractor snapshots the page currently shown. Implementations never fail.
type ContentExtractor interface {
	Extract(ctx context.Context, page schemas.Page) schemas.PageContent
}

var _ ContentExtractor = (*extractor.Extractor)(nil)

// ActionHandler executes a single action against the page.
type ActionHandler func(ctx context.Context, action Action) ExecutionResult

// Navigator is the navigation and application state machine. It executes one
// action at a time and keeps the latest page snapshot so that later actions
// in the same turn see fresh content.
type Navigator struct {
	logger    *zap.Logger
	page      schemas.Page
	extractor ContentExtractor
	session   *SessionState
	waits     config.NetworkConfig
	handlers  map[ActionType]ActionHandler

	mu      sync.RWMutex
	state   NavState
	content schemas.PageContent
}

// NewNavigator creates a navigator for page. The session's website context
// supplies the base URL and the page table.
func NewNavigator(logger *zap.Logger, page schemas.Page, ext ContentExtractor, session *SessionState, waits config.NetworkConfig) *Navigator {
	n := &Navigator{
		logger:    logger.Named("navigator"),
		page:      page,
		extractor: ext,
		session:   session,
		waits:     waits,
		handlers:  make(map[ActionType]ActionHandler),
		state:     StateIdle,
		content:   extractor.Minimal(),
	}
	n.registerHandlers()
	return n
}

func (n *Navigator) registerHandlers() {
	n.handlers[ActionNavigate] = n.handleNavigate
	n.handlers[ActionApplyForJob] = n.handleApplyForJob
	n.handlers[ActionShowJobs] = n.handleShowJobs
}

// Execute runs action and reports its outcome. Failures are returned as
// results, never as errors: one failed action does not stop the batch.
func (n *Navigator) Execute(ctx context.Context, action Action) ExecutionResult {
	handler, ok := n.handlers[action.Type]
	if !ok {
		res := failed(action, ErrCodeUnknownAction, fmt.Sprintf("no handler registered for action type %s", action.Type))
		n.record(res)
		return res
	}

	res := handler(ctx, action)
	res.Action = action
	n.record(res)
	return res
}

// State reports the current phase of the state machine.
func (n *Navigator) State() NavState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Content returns the most recent page snapshot.
func (n *Navigator) Content() schemas.PageContent {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.content
}

// Refresh re-extracts the current page and stores the snapshot.
func (n *Navigator) Refresh(ctx context.Context) schemas.PageContent {
	content := n.extractor.Extract(ctx, n.page)
	n.mu.Lock()
	n.content = content
	n.mu.Unlock()
	return content
}

// Open loads the site's base URL, waits up to rootWait for the page body and
// takes the first snapshot.
func (n *Navigator) Open(ctx context.Context, rootWait time.Duration) (schemas.PageContent, error) {
	base := n.session.Site().BaseURL
	if err := n.page.Load(ctx, base); err != nil {
		return schemas.PageContent{}, fmt.Errorf("opening %s: %w", base, err)
	}
	if err := n.page.WaitForRoot(ctx, extractor.RootSelector, rootWait); err != nil {
		return schemas.PageContent{}, fmt.Errorf("waiting for %s to render: %w", base, err)
	}
	n.session.SetCurrentURL(n.currentURL(ctx, base))
	content := n.Refresh(ctx)
	n.logger.Info("Website opened.", zap.String("url", base), zap.String("title", content.Title))
	return content, nil
}

func (n *Navigator) handleNavigate(ctx context.Context, action Action) ExecutionResult {
	n.setState(StateNavigating)
	defer n.setState(StateIdle)
	return n.navigate(ctx, action)
}

// navigate performs the page transition without touching the state, so that
// ApplyForJob can reuse it while it stays in ApplyingToJob.
func (n *Navigator) navigate(ctx context.Context, action Action) ExecutionResult {
	site := n.session.Site()
	path, ok := site.Paths[strings.ToLower(action.Value)]
	if !ok {
		return failed(action, ErrCodeNavigationFailure, fmt.Sprintf("unknown page %q", action.Value))
	}
	target := strings.TrimRight(site.BaseURL, "/") + path

	n.logger.Info("Navigating.", zap.String("page", action.Value), zap.String("url", target))
	navCtx, cancel := withOptionalTimeout(ctx, n.waits.NavigationWait)
	err := n.page.Load(navCtx, target)
	if err == nil {
		err = n.page.WaitForRoot(navCtx, extractor.RootSelector, n.waits.NavigationWait)
	}
	cancel()
	if err != nil {
		return failed(action, ErrCodeNavigationFailure, fmt.Sprintf("loading %s: %v", target, err))
	}

	if err := pause(ctx, n.waits.SettleDelay); err != nil {
		return failed(action, ErrCodeNavigationFailure, err.Error())
	}
	n.session.SetCurrentURL(n.currentURL(ctx, target))
	n.Refresh(ctx)
	return succeeded(action, fmt.Sprintf("navigated to %s", target))
}

func (n *Navigator) handleApplyForJob(ctx context.Context, action Action) ExecutionResult {
	n.setState(StateApplyingToJob)
	defer n.setState(StateIdle)

	content := n.Refresh(ctx)
	if !content.IsCareer() {
		if res := n.navigate(ctx, Navigate("career")); !res.Succeeded() {
			return failed(action, ErrCodeNavigationFailure, "could not reach the career page: "+res.Message)
		}
		content = n.Content()
	}

	keyword := strings.ToLower(action.Value)
	job, ok := findJob(content.JobListings, keyword)
	if !ok {
		return failed(action, ErrCodeJobNotFound, fmt.Sprintf("no job listing mentions %q", action.Value))
	}
	n.logger.Info("Found job listing.", zap.String("keyword", keyword), zap.String("title", job.Title))

	if err := n.page.ScrollIntoView(ctx, job.Ref); err != nil {
		return interactionFailure(action, "scrolling to job listing", err)
	}
	if err := pause(ctx, n.waits.ScrollPause); err != nil {
		return interactionFailure(action, "pausing after scroll", err)
	}

	control, err := n.applyControl(ctx, job, content.Buttons)
	if err != nil {
		return interactionFailure(action, "locating apply control", err)
	}
	if control == "" {
		// The listing was surfaced even though there is nothing to click.
		res := succeeded(action, fmt.Sprintf("found %q but it has no apply control", job.Title))
		res.ErrorCode = ErrCodeApplyControlMissing
		return res
	}

	if err := n.page.Click(ctx, control); err != nil {
		return interactionFailure(action, "clicking apply control", err)
	}
	if err := pause(ctx, n.waits.ClickPause); err != nil {
		return interactionFailure(action, "pausing after click", err)
	}
	n.session.SetCurrentURL(n.currentURL(ctx, n.session.CurrentURL()))
	return succeeded(action, fmt.Sprintf("opened the application for %q", job.Title))
}

func (n *Navigator) handleShowJobs(_ context.Context, action Action) ExecutionResult {
	return succeeded(action, "job listings surfaced")
}

// applyControl prefers an apply control inside the listing and falls back to
// the first one found on the page.
func (n *Navigator) applyControl(ctx context.Context, job schemas.JobListing, pageButtons []schemas.ButtonInfo) (schemas.ElementRef, error) {
	scoped, err := n.page.FindWithin(ctx, job.Ref, extractor.ApplySelector)
	if err != nil {
		return "", err
	}
	if len(scoped) > 0 {
		return scoped[0], nil
	}
	if len(pageButtons) > 0 {
		return pageButtons[0].Ref, nil
	}
	return "", nil
}

func (n *Navigator) currentURL(ctx context.Context, fallback string) string {
	if u, err := n.page.CurrentURL(ctx); err == nil && u != "" {
		return u
	}
	return fallback
}

func (n *Navigator) setState(s NavState) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

func (n *Navigator) record(res ExecutionResult) {
	observability.ActionsTotal.WithLabelValues(string(res.Action.Type), res.Status).Inc()
	fields := []zap.Field{
		zap.Stringer("action", res.Action),
		zap.String("status", res.Status),
		zap.String("message", res.Message),
	}
	if res.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", string(res.ErrorCode)))
	}
	if res.Succeeded() {
		n.logger.Info("Action executed.", fields...)
	} else {
		n.logger.Warn("Action failed.", fields...)
	}
}

func findJob(jobs []schemas.JobListing, keyword string) (schemas.JobListing, bool) {
	for _, job := range jobs {
		if strings.Contains(strings.ToLower(job.Title), keyword) ||
			strings.Contains(strings.ToLower(job.Description), keyword) {
			return job, true
		}
	}
	return schemas.JobListing{}, false
}

// withOptionalTimeout bounds ctx by d when d is positive.
func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// pause waits for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func interactionFailure(action Action, step string, err error) ExecutionResult {
	code := ErrCodeClickFailed
	if errors.Is(err, schemas.ErrElementStale) {
		code = ErrCodeElementStale
	}
	return failed(action, code, fmt.Sprintf("%s: %v", step, err))
}

func succeeded(action Action, msg string) ExecutionResult {
	return ExecutionResult{Action: action, Status: StatusSuccess, Message: msg}
}

func failed(action Action, code ErrorCode, msg string) ExecutionResult {
	return ExecutionResult{Action: action, Status: StatusFailed, ErrorCode: code, Message: msg}
}
