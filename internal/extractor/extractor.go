// File: internal/extractor/extractor.go
// Package extractor turns whatever page the browser is showing into a typed
// schemas.PageContent snapshot.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// Selectors used against the page. They are deliberately broad; the target
// site's markup is not under our control.
const (
	RootSelector     = "body"
	HeadingSelector  = "h1, h2, h3, h4"
	JobSelector      = ".job-listing, .career-item, .position, [class*='job'], [class*='position'], [class*='opening']"
	JobTitleSelector = "h1, h2, h3, h4, .title, .job-title"
	ApplySelector    = "button[class*='apply'], a[class*='apply'], .apply-btn, [href*='apply']"
	FormSelector     = "form"
	InputSelector    = "input, textarea, select"
)

// minDescriptionLen is the description length an untitled job block must exceed.
const minDescriptionLen = 20

// Extractor builds PageContent snapshots. It is stateless apart from its
// configuration and may be shared.
type Extractor struct {
	logger   *zap.Logger
	rootWait time.Duration
}

// New creates an Extractor that waits up to rootWait for the page body.
func New(logger *zap.Logger, rootWait time.Duration) *Extractor {
	return &Extractor{
		logger:   logger.Named("extractor"),
		rootWait: rootWait,
	}
}

// Extract snapshots the current page. It never fails: any error while reading
// the page is logged and a minimal general-page snapshot is returned instead.
func (e *Extractor) Extract(ctx context.Context, page schemas.Page) schemas.PageContent {
	start := time.Now()
	content, err := e.extract(ctx, page)
	if err != nil {
		observability.ExtractionFailures.Inc()
		e.logger.Warn("Page extraction failed, using minimal content.", zap.Error(err))
		return Minimal()
	}

	observability.ExtractionDuration.WithLabelValues(string(content.PageType)).Observe(time.Since(start).Seconds())
	e.logger.Debug("Page extracted.",
		zap.String("url", content.URL),
		zap.String("page_type", string(content.PageType)),
		zap.Int("headings", len(content.Headings)),
		zap.Int("jobs", len(content.JobListings)),
		zap.Int("forms", len(content.Forms)),
	)
	return content
}

// Minimal is the snapshot used whenever extraction fails.
func Minimal() schemas.PageContent {
	return schemas.PageContent{
		PageType:    schemas.PageTypeGeneral,
		Headings:    []string{},
		JobListings: []schemas.JobListing{},
		Forms:       []schemas.FormInfo{},
		Buttons:     []schemas.ButtonInfo{},
	}
}

// Classify reports the page type implied by a URL.
func Classify(url string) schemas.PageType {
	if strings.Contains(strings.ToLower(url), "career") {
		return schemas.PageTypeCareer
	}
	return schemas.PageTypeGeneral
}

func (e *Extractor) extract(ctx context.Context, page schemas.Page) (schemas.PageContent, error) {
	content := Minimal()

	if err := page.WaitForRoot(ctx, RootSelector, e.rootWait); err != nil {
		return content, fmt.Errorf("waiting for %s: %w", RootSelector, err)
	}

	var err error
	if content.Title, err = page.Title(ctx); err != nil {
		return content, fmt.Errorf("reading title: %w", err)
	}
	if content.URL, err = page.CurrentURL(ctx); err != nil {
		return content, fmt.Errorf("reading url: %w", err)
	}
	content.PageType = Classify(content.URL)

	if content.Headings, err = e.headings(ctx, page); err != nil {
		return content, err
	}

	if content.IsCareer() {
		if content.JobListings, err = e.jobs(ctx, page); err != nil {
			return content, err
		}
		if content.Buttons, err = e.applyButtons(ctx, page); err != nil {
			return content, err
		}
	}

	if content.Forms, err = e.forms(ctx, page); err != nil {
		return content, err
	}

	text, err := page.VisibleText(ctx)
	if err != nil {
		return content, fmt.Errorf("reading body text: %w", err)
	}
	content.MainContent = Truncate(text, schemas.MaxMainContent)
	return content, nil
}

func (e *Extractor) headings(ctx context.Context, page schemas.Page) ([]string, error) {
	refs, err := page.FindAll(ctx, HeadingSelector)
	if err != nil {
		return nil, fmt.Errorf("finding headings: %w", err)
	}
	headings := make([]string, 0, len(refs))
	for _, ref := range refs {
		text, err := page.TextOf(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading heading: %w", err)
		}
		if text = strings.TrimSpace(text); text != "" {
			headings = append(headings, text)
		}
	}
	return headings, nil
}

func (e *Extractor) jobs(ctx context.Context, page schemas.Page) ([]schemas.JobListing, error) {
	refs, err := page.FindAll(ctx, JobSelector)
	if err != nil {
		return nil, fmt.Errorf("finding job listings: %w", err)
	}

	jobs := make([]schemas.JobListing, 0, len(refs))
	for _, ref := range refs {
		job := schemas.JobListing{Ref: ref}

		titles, err := page.FindWithin(ctx, ref, JobTitleSelector)
		if err != nil {
			return nil, fmt.Errorf("finding job title: %w", err)
		}
		if len(titles) > 0 {
			title, err := page.TextOf(ctx, titles[0])
			if err != nil {
				return nil, fmt.Errorf("reading job title: %w", err)
			}
			job.Title = strings.TrimSpace(title)
		}

		description, err := page.TextOf(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading job description: %w", err)
		}
		job.Description = strings.TrimSpace(description)

		if job.Title != "" || utf8.RuneCountInString(job.Description) > minDescriptionLen {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (e *Extractor) applyButtons(ctx context.Context, page schemas.Page) ([]schemas.ButtonInfo, error) {
	refs, err := page.FindAll(ctx, ApplySelector)
	if err != nil {
		return nil, fmt.Errorf("finding apply controls: %w", err)
	}
	buttons := make([]schemas.ButtonInfo, 0, len(refs))
	for _, ref := range refs {
		text, err := page.TextOf(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading apply control: %w", err)
		}
		buttons = append(buttons, schemas.ButtonInfo{Text: strings.TrimSpace(text), Ref: ref})
	}
	return buttons, nil
}

func (e *Extractor) forms(ctx context.Context, page schemas.Page) ([]schemas.FormInfo, error) {
	refs, err := page.FindAll(ctx, FormSelector)
	if err != nil {
		return nil, fmt.Errorf("finding forms: %w", err)
	}

	forms := make([]schemas.FormInfo, 0, len(refs))
	for _, ref := range refs {
		inputRefs, err := page.FindWithin(ctx, ref, InputSelector)
		if err != nil {
			return nil, fmt.Errorf("finding form inputs: %w", err)
		}
		form := schemas.FormInfo{Ref: ref, Inputs: make([]schemas.InputInfo, 0, len(inputRefs))}
		for _, in := range inputRefs {
			info := schemas.InputInfo{Ref: in}
			// Absent attributes read as "".
			if info.Type, _, err = page.AttributeOf(ctx, in, "type"); err != nil {
				return nil, fmt.Errorf("reading input type: %w", err)
			}
			if info.Name, _, err = page.AttributeOf(ctx, in, "name"); err != nil {
				return nil, fmt.Errorf("reading input name: %w", err)
			}
			if info.Placeholder, _, err = page.AttributeOf(ctx, in, "placeholder"); err != nil {
				return nil, fmt.Errorf("reading input placeholder: %w", err)
			}
			form.Inputs = append(form.Inputs, info)
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
