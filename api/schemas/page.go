// File: api/schemas/page.go
package schemas

import (
	"context"
	"errors"
	"time"
)

// ElementRef is an opaque handle to an element of the currently loaded page.
// Refs are only meaningful to the Page that issued them and only until the
// page is reloaded; using one afterwards yields ErrElementStale.
type ElementRef string

var (
	// ErrElementStale is returned when a ref no longer resolves to an element.
	ErrElementStale = errors.New("element reference is stale")
	// ErrRootTimeout is returned when the root selector does not appear in time.
	ErrRootTimeout = errors.New("timed out waiting for page root")
)

// Page is the boundary to whatever is rendering the target website.
// Implementations are driven by a single turn at a time and need not be
// safe for concurrent use.
type Page interface {
	// Load navigates to url. It does not wait for any particular element.
	Load(ctx context.Context, url string) error
	// WaitForRoot blocks until selector matches or the timeout elapses.
	WaitForRoot(ctx context.Context, selector string, timeout time.Duration) error

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// VisibleText returns the rendered text of the document body.
	VisibleText(ctx context.Context) (string, error)

	// FindAll returns refs for every element matching selector, in document order.
	FindAll(ctx context.Context, selector string) ([]ElementRef, error)
	// FindWithin is FindAll scoped to the descendants of scope.
	FindWithin(ctx context.Context, scope ElementRef, selector string) ([]ElementRef, error)
	TextOf(ctx context.Context, ref ElementRef) (string, error)
	// AttributeOf returns the attribute value and whether it was present.
	AttributeOf(ctx context.Context, ref ElementRef, name string) (string, bool, error)

	ScrollIntoView(ctx context.Context, ref ElementRef) error
	Click(ctx context.Context, ref ElementRef) error
}
