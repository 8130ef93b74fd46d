// File: internal/extractor/extractor_test.go
package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/browser/snapshot"
	"github.com/xkilldash9x/sitevoice/internal/testing/testsite"
)

func pageAt(t *testing.T, pages snapshot.Pages, url string) *snapshot.Page {
	t.Helper()
	p := snapshot.New(pages, zaptest.NewLogger(t))
	require.NoError(t, p.Load(context.Background(), url))
	return p
}

// -- Career Pages --

func TestExtract_CareerPage(t *testing.T) {
	e := New(zaptest.NewLogger(t), time.Second)
	content := e.Extract(context.Background(), pageAt(t, testsite.Pages(), testsite.CareerURL))

	assert.Equal(t, "Careers | I Knowledge Factory", content.Title)
	assert.Equal(t, testsite.CareerURL, content.URL)
	assert.Equal(t, schemas.PageTypeCareer, content.PageType)
	assert.Equal(t, []string{"Careers", "Open Positions", "AI LLM Intern", "Frontend Developer"}, content.Headings)

	require.Len(t, content.JobListings, 3, "short untitled blocks are excluded")
	assert.Equal(t, "AI LLM Intern", content.JobListings[0].Title)
	assert.Equal(t, "AI LLM Intern\nWork on large language model products. Duration: 6 months. Remote.\nApply Now", content.JobListings[0].Description)
	assert.Equal(t, "Frontend Developer", content.JobListings[1].Title)
	assert.Equal(t, "", content.JobListings[2].Title)
	assert.Equal(t, "We are always hiring creative designers for our studio team.", content.JobListings[2].Description)
	for _, job := range content.JobListings {
		assert.NotEmpty(t, job.Ref)
	}

	require.Len(t, content.Buttons, 2)
	assert.Equal(t, "Apply Now", content.Buttons[0].Text)
	assert.Equal(t, "Apply", content.Buttons[1].Text)

	require.Len(t, content.Forms, 1)
	want := []schemas.InputInfo{
		{Type: "text", Name: "full_name", Placeholder: "Full name"},
		{Type: "", Name: "email", Placeholder: ""},
		{Type: "", Name: "cover", Placeholder: "Cover letter"},
		{Type: "", Name: "role", Placeholder: ""},
	}
	if diff := cmp.Diff(want, content.Forms[0].Inputs, cmpopts.IgnoreFields(schemas.InputInfo{}, "Ref")); diff != "" {
		t.Errorf("form inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_CareerPageWithoutJobs(t *testing.T) {
	e := New(zaptest.NewLogger(t), time.Second)
	content := e.Extract(context.Background(), pageAt(t, testsite.CareerWithoutJobs(), testsite.CareerURL))

	assert.Equal(t, schemas.PageTypeCareer, content.PageType)
	assert.Empty(t, content.JobListings)
	assert.Empty(t, content.Buttons)
}

// -- General Pages --

func TestExtract_GeneralPageNeverCarriesJobs(t *testing.T) {
	e := New(zaptest.NewLogger(t), time.Second)
	content := e.Extract(context.Background(), pageAt(t, testsite.Pages(), testsite.HomeURL))

	assert.Equal(t, schemas.PageTypeGeneral, content.PageType)
	// The home page has a job banner and an apply-like link; neither is collected.
	assert.Empty(t, content.JobListings)
	assert.Empty(t, content.Buttons)
	// Duplicates are kept, document order preserved.
	assert.Equal(t, []string{"Welcome to I Knowledge Factory", "What we do", "What we do"}, content.Headings)
	assert.Contains(t, content.MainContent, "We build websites")
}

func TestExtract_MainContentIsBounded(t *testing.T) {
	long := strings.Repeat("é", 2500)
	pages := snapshot.Pages{"https://ikf.test/about": "<html><body><p>" + long + "</p></body></html>"}

	e := New(zaptest.NewLogger(t), time.Second)
	content := e.Extract(context.Background(), pageAt(t, pages, "https://ikf.test/about"))

	assert.Equal(t, schemas.MaxMainContent, len([]rune(content.MainContent)))
	assert.Equal(t, schemas.PageTypeGeneral, content.PageType)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, schemas.PageTypeCareer, Classify("https://ikf.co.in/Careers/open"))
	assert.Equal(t, schemas.PageTypeCareer, Classify("https://ikf.co.in/career"))
	assert.Equal(t, schemas.PageTypeGeneral, Classify("https://ikf.co.in/jobs"))
}

// -- Failure Handling --

// failingPage errors on FindAll after the root check succeeds.
type failingPage struct{ *snapshot.Page }

func (f failingPage) FindAll(ctx context.Context, selector string) ([]schemas.ElementRef, error) {
	return nil, errors.New("target closed")
}

func TestExtract_FallsBackToMinimal(t *testing.T) {
	t.Run("root never appears", func(t *testing.T) {
		e := New(zaptest.NewLogger(t), 10*time.Millisecond)
		empty := snapshot.New(testsite.Pages(), zaptest.NewLogger(t))

		content := e.Extract(context.Background(), empty)
		assert.Equal(t, Minimal(), content)
	})

	t.Run("page errors mid-extraction", func(t *testing.T) {
		e := New(zaptest.NewLogger(t), time.Second)
		page := failingPage{pageAt(t, testsite.Pages(), testsite.CareerURL)}

		content := e.Extract(context.Background(), page)
		assert.Equal(t, Minimal(), content)
		assert.Empty(t, content.Title, "partial results are discarded")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}
