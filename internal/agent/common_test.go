package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/agent"
	"github.com/xkilldash9x/sitevoice/internal/browser/snapshot"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/testing/testsite"
)

// testConfig points the default configuration at the fixture site and drops
// every pause so tests run instantly.
func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Site.BaseURL = testsite.BaseURL
	cfg.Network = config.NetworkConfig{
		RootWait:        time.Second,
		NavigationWait:  time.Second,
		InitialLoadWait: time.Second,
	}
	return cfg
}

// fixture is a navigator over a snapshot page of the fixture site.
type fixture struct {
	page      *snapshot.Page
	session   *agent.SessionState
	navigator *agent.Navigator
}

func newFixture(t *testing.T, pages snapshot.Pages, startURL string) *fixture {
	t.Helper()
	cfg := testConfig()
	logger := zaptest.NewLogger(t)
	page := snapshot.New(pages, logger)

	session := agent.NewSessionState(agent.WebsiteContext{
		CompanyName: cfg.Site.CompanyName,
		BaseURL:     cfg.Site.BaseURL,
		Pages:       cfg.Site.Pages,
		Paths:       cfg.Site.Paths,
	})
	nav := agent.NewNavigator(logger, page, extractor.New(logger, cfg.Network.RootWait), session, cfg.Network)

	require.NoError(t, page.Load(context.Background(), startURL))
	session.SetCurrentURL(startURL)
	nav.Refresh(context.Background())
	return &fixture{page: page, session: session, navigator: nav}
}

// stalePage reports every scroll as stale, as a live page does after the DOM
// it was read from has been replaced.
type stalePage struct {
	*snapshot.Page
}

func (stalePage) ScrollIntoView(context.Context, schemas.ElementRef) error {
	return schemas.ErrElementStale
}
