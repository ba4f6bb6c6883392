// Package crawler drives a browser session through the passo.com.tr category
// menu, event list and event detail tabs, and parses the rendered pages.
package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/passoworker/config"
)

const (
	stageNavigate = "navigate"
	stageList     = "list"
	stageDetail   = "detail"
)

// DefaultCrawlerConfig returns the selectors and timings of the live site
func DefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		Selectors: Selectors{
			// The icon label of a menu link; submenu entries carry no icon.
			NavLink: "#navbar-content a i",

			ListReady:     ".r-event-item",
			ListItem:      "div.r-event-item",
			Title:         "div.r-title",
			Date:          "span.r-date",
			Location:      "span.r-location",
			DetailTrigger: ".overlay-text-container",

			DetailContent: ".box",
			ExpandControl: "span",
			Sidebar:       "div.col-md-4.ticket-info",
			DetailDate:    ".box.first ul li",
			Venue:         ".text-primary",
			CategoryIcon:  ".passo-icon-hastag",
			CategoryBox:   "div.box",
			CategoryItems: "ul li",
		},
		Labels: Labels{
			Expand:   "Tüm kategorileri göster",
			Collapse: "Gizle",
		},
		Placeholders: Placeholders{
			Title:    "No Title",
			Date:     "No Date",
			Location: "No Location",
		},
		Timing: Timing{
			NavTimeout:     15 * time.Second,
			ListTimeout:    10 * time.Second,
			DetailTimeout:  10 * time.Second,
			PopupTimeout:   10 * time.Second,
			ExpandTimeout:  3 * time.Second,
			NavSettle:      2 * time.Second,
			ScrollSettle:   time.Second,
			ExpandSettle:   1500 * time.Millisecond,
			CleanupTimeout: 5 * time.Second,
		},
	}
}

// NewCrawlerConfig applies the environment configuration on top of the defaults
func NewCrawlerConfig(cfg *config.Config) CrawlerConfig {
	c := DefaultCrawlerConfig()
	c.Timing.NavTimeout = cfg.NavTimeout
	c.Timing.ListTimeout = cfg.ListTimeout
	c.Timing.DetailTimeout = cfg.DetailTimeout
	c.Timing.PopupTimeout = cfg.PopupTimeout
	c.Timing.ExpandTimeout = cfg.ExpandTimeout
	c.Timing.NavSettle = cfg.NavSettle
	c.Timing.ScrollSettle = cfg.ScrollSettle
	c.Timing.ExpandSettle = cfg.ExpandSettle
	c.EmptyListIsError = cfg.EmptyListIsError
	return c
}

// Crawler runs the navigation and extraction workflow. It holds configuration
// only; the browser session is passed to every operation.
type Crawler struct {
	cfg    CrawlerConfig
	status StatusFunc
}

// NewCrawler creates a crawler. status may be nil.
func NewCrawler(cfg CrawlerConfig, status StatusFunc) *Crawler {
	return &Crawler{cfg: cfg, status: status}
}

func (c *Crawler) report(format string, args ...interface{}) {
	if c.status != nil {
		c.status(fmt.Sprintf(format, args...))
	}
}

// interrupted returns the caller's context error so a cancelled operation is
// not reported as a page timeout.
func interrupted(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
