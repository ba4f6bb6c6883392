// Package browsertest provides an in-memory browser.Driver for exercising
// crawl workflows without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/passoworker/internal/browser"

	"github.com/PuerkitoBio/goquery"
)

// Driver serves scripted HTML per URL and interprets ForceClick on a few
// attributes:
//
//	a[href]          navigates the active tab, also when a descendant is clicked
//	[data-popup=u]   opens a new tab on u without activating it
//	[data-replace=k] swaps the active tab's DOM for pages[k]
type Driver struct {
	mu       sync.Mutex
	pages    map[string]string
	contexts []*tab
	current  *tab
	nextID   int

	navigations []string
	clicks      []string
	scrolls     int
}

type tab struct {
	id   string
	url  string
	html string
}

var _ browser.Driver = (*Driver)(nil)

// MainContext is the id of the tab a new Driver starts with
const MainContext = "main"

// NewDriver returns a driver with a single tab on about:blank. pages maps
// URLs and data-replace keys to HTML; the map is not copied.
func NewDriver(pages map[string]string) *Driver {
	main := &tab{id: MainContext, url: "about:blank"}
	return &Driver{
		pages:    pages,
		contexts: []*tab{main},
		current:  main,
		nextID:   1,
	}
}

func (d *Driver) doc() *goquery.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		doc, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
		return doc
	}
	html := d.current.html
	if html == "" {
		html = d.pages[d.current.url]
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(html))
	return doc
}

func (d *Driver) poll(ctx context.Context, find func() *goquery.Selection) (*goquery.Selection, error) {
	for {
		if sel := find(); sel.Length() > 0 {
			return sel, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return fmt.Errorf("no active tab")
	}
	d.navigations = append(d.navigations, url)
	d.current.url = url
	d.current.html = ""
	return nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "", fmt.Errorf("no active tab")
	}
	return d.current.url, nil
}

func (d *Driver) WaitURLChange(ctx context.Context, from string) (string, error) {
	for {
		url, err := d.URL(ctx)
		if err != nil {
			return "", err
		}
		if url != from {
			return url, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (d *Driver) HTML(ctx context.Context) (string, error) {
	return d.doc().Html()
}

func (d *Driver) WaitElement(ctx context.Context, selector string) (browser.Element, error) {
	sel, err := d.poll(ctx, func() *goquery.Selection { return d.doc().Find(selector) })
	if err != nil {
		return nil, err
	}
	return &element{d: d, sel: sel.First()}, nil
}

func (d *Driver) WaitElements(ctx context.Context, selector string) ([]browser.Element, error) {
	sel, err := d.poll(ctx, func() *goquery.Selection { return d.doc().Find(selector) })
	if err != nil {
		return nil, err
	}
	var out []browser.Element
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{d: d, sel: s})
	})
	return out, nil
}

func (d *Driver) WaitElementByText(ctx context.Context, selector, text string) (browser.Element, error) {
	sel, err := d.poll(ctx, func() *goquery.Selection {
		return d.doc().Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), text)
		})
	})
	if err != nil {
		return nil, err
	}
	return &element{d: d, sel: sel.First()}, nil
}

func (d *Driver) CurrentContext() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.id
}

func (d *Driver) Contexts(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.contexts))
	for _, tab := range d.contexts {
		ids = append(ids, tab.id)
	}
	return ids, nil
}

func (d *Driver) WaitContexts(ctx context.Context, min int) ([]string, error) {
	for {
		ids, _ := d.Contexts(ctx)
		if len(ids) >= min {
			return ids, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (d *Driver) SwitchContext(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tab := range d.contexts {
		if tab.id == id {
			d.current = tab
			return nil
		}
	}
	return fmt.Errorf("no tab %s", id)
}

func (d *Driver) CloseContext(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, tab := range d.contexts {
		if tab.id == id {
			d.contexts = append(d.contexts[:i], d.contexts[i+1:]...)
			if d.current == tab {
				d.current = nil
			}
			return nil
		}
	}
	return fmt.Errorf("no tab %s", id)
}

// OpenTab opens a background tab on url, as a popup would, and returns its id
func (d *Driver) OpenTab(url string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("tab-%d", d.nextID)
	d.contexts = append(d.contexts, &tab{id: id, url: url})
	return id
}

// OpenContexts returns the ids of all open tabs
func (d *Driver) OpenContexts() []string {
	ids, _ := d.Contexts(context.Background())
	return ids
}

// Navigations returns every URL passed to Navigate
func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// Clicks returns the trimmed text of every clicked element
func (d *Driver) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

// Scrolls returns how often ScrollIntoCenter was called
func (d *Driver) Scrolls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrolls
}

// ResetRecords clears recorded navigations, clicks and scrolls
func (d *Driver) ResetRecords() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations = nil
	d.clicks = nil
	d.scrolls = 0
}

type element struct {
	d   *Driver
	sel *goquery.Selection
}

func (e *element) ForceClick(ctx context.Context) error {
	d := e.d
	d.mu.Lock()
	d.clicks = append(d.clicks, strings.TrimSpace(e.sel.Text()))
	d.mu.Unlock()

	// A click inside a link bubbles up to it.
	if href, ok := e.sel.Closest("a[href]").Attr("href"); ok {
		d.mu.Lock()
		if d.current != nil {
			d.current.url = href
			d.current.html = ""
		}
		d.mu.Unlock()
	}
	if url, ok := e.sel.Attr("data-popup"); ok {
		d.OpenTab(url)
	}
	if key, ok := e.sel.Attr("data-replace"); ok {
		d.mu.Lock()
		if d.current != nil {
			d.current.html = d.pages[key]
		}
		d.mu.Unlock()
	}
	return nil
}

func (e *element) ScrollIntoCenter(ctx context.Context) error {
	e.d.mu.Lock()
	e.d.scrolls++
	e.d.mu.Unlock()
	return nil
}

func (e *element) Find(ctx context.Context, selector string) (browser.Element, error) {
	child := e.sel.Find(selector).First()
	if child.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", browser.ErrNotFound, selector)
	}
	return &element{d: e.d, sel: child}, nil
}
