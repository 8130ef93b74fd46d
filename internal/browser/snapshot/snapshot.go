// File: internal/browser/snapshot/snapshot.go
// Package snapshot implements schemas.Page over static HTML parsed with
// goquery. It backs the offline inspect command and stands in for the live
// browser in tests.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

// Click records an interaction performed through Page.Click.
type Click struct {
	Tag  string
	Text string
	Href string
}

// Page is a schemas.Page over documents obtained from a Source. Each Load
// starts a new generation; refs from earlier generations are stale.
type Page struct {
	mu     sync.Mutex
	source Source
	logger *zap.Logger

	url   string
	doc   *goquery.Document
	gen   int
	nodes []*html.Node
	index map[*html.Node]int

	clicks  []Click
	scrolls []schemas.ElementRef
}

var _ schemas.Page = (*Page)(nil)

// New creates an empty page. Nothing is loaded until Load is called.
func New(source Source, logger *zap.Logger) *Page {
	return &Page{
		source: source,
		logger: logger.Named("snapshot"),
	}
}

// Load fetches url from the source and parses it as the current document.
func (p *Page) Load(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := p.source.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = rawURL
	p.doc = doc
	p.gen++
	p.nodes = nil
	p.index = make(map[*html.Node]int)
	p.logger.Debug("Document loaded.", zap.String("url", rawURL), zap.Int("generation", p.gen))
	return nil
}

// WaitForRoot checks for selector immediately; a static document never changes.
func (p *Page) WaitForRoot(ctx context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %q", schemas.ErrRootTimeout, selector)
	}
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", nil
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

// VisibleText renders the body the way a browser's innerText would, roughly.
func (p *Page) VisibleText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", nil
	}
	return RenderText(p.doc.Find("body").First()), nil
}

func (p *Page) FindAll(ctx context.Context, selector string) ([]schemas.ElementRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil, nil
	}
	return p.register(p.doc.Find(selector)), nil
}

func (p *Page) FindWithin(ctx context.Context, scope schemas.ElementRef, selector string) ([]schemas.ElementRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, err := p.resolve(scope)
	if err != nil {
		return nil, err
	}
	return p.register(goquery.NewDocumentFromNode(node).Find(selector)), nil
}

func (p *Page) TextOf(ctx context.Context, ref schemas.ElementRef) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, err := p.resolve(ref)
	if err != nil {
		return "", err
	}
	return RenderText(goquery.NewDocumentFromNode(node).Selection), nil
}

func (p *Page) AttributeOf(ctx context.Context, ref schemas.ElementRef, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, err := p.resolve(ref)
	if err != nil {
		return "", false, err
	}
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (p *Page) ScrollIntoView(ctx context.Context, ref schemas.ElementRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.resolve(ref); err != nil {
		return err
	}
	p.scrolls = append(p.scrolls, ref)
	return nil
}

// Click records the interaction. Clicking a link with an href loads its
// target, which invalidates every outstanding ref.
func (p *Page) Click(ctx context.Context, ref schemas.ElementRef) error {
	p.mu.Lock()
	node, err := p.resolve(ref)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	sel := goquery.NewDocumentFromNode(node).Selection
	href, _ := sel.Attr("href")
	p.clicks = append(p.clicks, Click{Tag: node.Data, Text: strings.TrimSpace(RenderText(sel)), Href: href})
	base := p.url
	p.mu.Unlock()

	if node.Data != "a" || href == "" {
		return nil
	}
	target, err := resolveHref(base, href)
	if err != nil {
		return fmt.Errorf("resolving link target: %w", err)
	}
	return p.Load(ctx, target)
}

// Clicks returns the interactions recorded so far.
func (p *Page) Clicks() []Click {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Click(nil), p.clicks...)
}

// Scrolls returns the refs scrolled into view so far.
func (p *Page) Scrolls() []schemas.ElementRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]schemas.ElementRef(nil), p.scrolls...)
}

// register assigns refs to the selection's nodes, reusing refs for nodes
// already seen in this generation.
func (p *Page) register(sel *goquery.Selection) []schemas.ElementRef {
	refs := make([]schemas.ElementRef, 0, sel.Length())
	for _, node := range sel.Nodes {
		idx, ok := p.index[node]
		if !ok {
			idx = len(p.nodes)
			p.nodes = append(p.nodes, node)
			p.index[node] = idx
		}
		refs = append(refs, schemas.ElementRef(fmt.Sprintf("%d:%d", p.gen, idx)))
	}
	return refs
}

func (p *Page) resolve(ref schemas.ElementRef) (*html.Node, error) {
	genStr, idxStr, ok := strings.Cut(string(ref), ":")
	if !ok {
		return nil, fmt.Errorf("%w: malformed ref %q", schemas.ErrElementStale, ref)
	}
	gen, err1 := strconv.Atoi(genStr)
	idx, err2 := strconv.Atoi(idxStr)
	if err1 != nil || err2 != nil || gen != p.gen || idx < 0 || idx >= len(p.nodes) {
		return nil, fmt.Errorf("%w: %q", schemas.ErrElementStale, ref)
	}
	return p.nodes[idx], nil
}

func resolveHref(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
}
