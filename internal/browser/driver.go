// Package browser owns the single controllable Chrome instance and exposes it
// to the crawl workflow through the Driver interface.
package browser

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Element.Find when no child matches.
var ErrNotFound = errors.New("browser: element not found")

// Driver is the browser control surface the crawl workflow runs against.
// Every wait is bounded by the deadline of the ctx passed in; implementations
// retry internally and return a ctx error when the deadline passes.
type Driver interface {
	// Navigate loads url in the active browsing context and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL returns the address of the active browsing context.
	URL(ctx context.Context) (string, error)
	// WaitURLChange blocks until the active context's URL differs from from.
	WaitURLChange(ctx context.Context, from string) (string, error)
	// HTML returns the full rendered HTML of the active context.
	HTML(ctx context.Context) (string, error)

	// WaitElement blocks until an element matching the CSS selector is present.
	WaitElement(ctx context.Context, selector string) (Element, error)
	// WaitElements blocks until at least one element matches and returns all
	// matches in DOM order.
	WaitElements(ctx context.Context, selector string) ([]Element, error)
	// WaitElementByText blocks until an element matching selector whose text
	// contains text (case-sensitive) is present.
	WaitElementByText(ctx context.Context, selector, text string) (Element, error)

	// CurrentContext returns the id of the active browsing context.
	CurrentContext() string
	// Contexts lists the ids of all open browsing contexts.
	Contexts(ctx context.Context) ([]string, error)
	// WaitContexts blocks until at least min browsing contexts are open.
	WaitContexts(ctx context.Context, min int) ([]string, error)
	// SwitchContext makes id the active browsing context.
	SwitchContext(ctx context.Context, id string) error
	// CloseContext closes the browsing context id. Closing the active context
	// leaves no active context until SwitchContext is called.
	CloseContext(ctx context.Context, id string) error
}

// Element is a live handle on a DOM node inside one browsing context.
type Element interface {
	// ForceClick invokes the element's click() from page script. Unlike a
	// native pointer click it ignores visibility and overlays, and only
	// handlers reachable from a programmatic click fire.
	ForceClick(ctx context.Context) error
	// ScrollIntoCenter scrolls the element to the vertical center of the viewport.
	ScrollIntoCenter(ctx context.Context) error
	// Find returns the first descendant matching selector without waiting,
	// or ErrNotFound.
	Find(ctx context.Context, selector string) (Element, error)
}
