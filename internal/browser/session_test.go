// File: internal/browser/session_test.go
package browser_test

import (
	"context"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/browser"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/testing/testsite"
)

// findChrome returns a Chrome binary on PATH, or "" if there is none.
func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// setupSession launches a headless browser and opens one tab on the fixture site.
func setupSession(t *testing.T) (*browser.Session, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live browser test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("no Chrome binary found on PATH")
	}

	logger := zaptest.NewLogger(t)
	srv := httptest.NewServer(testsite.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mgr, err := browser.NewManager(ctx, logger, config.BrowserConfig{
		Headless:      true,
		HideWebdriver: true,
		ExecPath:      chrome,
	}, 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(shutdownCtx)
	})

	session, err := mgr.NewSession(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session, srv.URL
}

func TestSessionLive(t *testing.T) {
	session, base := setupSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, session.Load(ctx, base+"/career"))
	require.NoError(t, session.WaitForRoot(ctx, "body", 5*time.Second))

	t.Run("reads text through refs", func(t *testing.T) {
		refs, err := session.FindAll(ctx, "h1")
		require.NoError(t, err)
		require.Len(t, refs, 1)

		text, err := session.TextOf(ctx, refs[0])
		require.NoError(t, err)
		assert.Equal(t, "Careers", strings.TrimSpace(text))

		again, err := session.FindAll(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, refs, again, "an element keeps its ref within a document")
	})

	t.Run("extracts the career page", func(t *testing.T) {
		content := extractor.New(zaptest.NewLogger(t), 5*time.Second).Extract(ctx, session)

		assert.Equal(t, schemas.PageTypeCareer, content.PageType)
		assert.Equal(t, "Careers | I Knowledge Factory", content.Title)
		require.NotEmpty(t, content.JobListings)
		assert.Equal(t, "AI LLM Intern", content.JobListings[0].Title)
		assert.NotEmpty(t, content.Buttons)
		require.Len(t, content.Forms, 1)
		assert.Len(t, content.Forms[0].Inputs, 4)
	})

	t.Run("attributes report presence", func(t *testing.T) {
		inputs, err := session.FindAll(ctx, "#apply-form input")
		require.NoError(t, err)
		require.Len(t, inputs, 2)

		placeholder, ok, err := session.AttributeOf(ctx, inputs[1], "placeholder")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, placeholder)
	})

	t.Run("refs go stale after navigation", func(t *testing.T) {
		buttons, err := session.FindAll(ctx, ".apply-btn")
		require.NoError(t, err)
		require.NotEmpty(t, buttons)

		require.NoError(t, session.Load(ctx, base+"/contact"))
		require.NoError(t, session.WaitForRoot(ctx, "body", 5*time.Second))

		err = session.ScrollIntoView(ctx, buttons[0])
		assert.ErrorIs(t, err, schemas.ErrElementStale)
		err = session.Click(ctx, buttons[0])
		assert.ErrorIs(t, err, schemas.ErrElementStale)
	})

	t.Run("clicking an apply link follows it", func(t *testing.T) {
		require.NoError(t, session.Load(ctx, base+"/career"))
		require.NoError(t, session.WaitForRoot(ctx, "body", 5*time.Second))

		buttons, err := session.FindAll(ctx, ".apply-btn")
		require.NoError(t, err)
		require.NotEmpty(t, buttons)
		require.NoError(t, session.ScrollIntoView(ctx, buttons[0]))
		require.NoError(t, session.Click(ctx, buttons[0]))

		assert.Eventually(t, func() bool {
			url, err := session.CurrentURL(ctx)
			return err == nil && strings.Contains(url, "/career/apply")
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("missing root times out", func(t *testing.T) {
		err := session.WaitForRoot(ctx, "#does-not-exist", 200*time.Millisecond)
		assert.ErrorIs(t, err, schemas.ErrRootTimeout)
	})
}
