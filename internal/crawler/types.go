package crawler

import "time"

// MatchSummary is one event card of the category list
type MatchSummary struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

// MatchDetail is the ticket sidebar of one event's detail page.
// An empty Date or Venue means the page did not show one.
type MatchDetail struct {
	Date       string   `json:"date,omitempty"`
	Venue      string   `json:"venue,omitempty"`
	Categories []string `json:"categories"`
}

// StatusFunc receives human readable progress lines
type StatusFunc func(msg string)

// Selectors contains CSS selectors for various elements in the page
type Selectors struct {
	// Navigation
	NavLink string

	// List page
	ListReady     string
	ListItem      string
	Title         string
	Date          string
	Location      string
	DetailTrigger string

	// Detail page
	DetailContent string
	ExpandControl string
	Sidebar       string
	DetailDate    string
	Venue         string
	CategoryIcon  string
	CategoryBox   string
	CategoryItems string
}

// Labels contains UI texts the site renders in Turkish
type Labels struct {
	Expand   string
	Collapse string
}

// Placeholders replace list fields whose element is missing
type Placeholders struct {
	Title    string
	Date     string
	Location string
}

// Timing contains the bounded wait windows and settle fallbacks
type Timing struct {
	NavTimeout    time.Duration
	ListTimeout   time.Duration
	DetailTimeout time.Duration
	PopupTimeout  time.Duration
	ExpandTimeout time.Duration

	NavSettle    time.Duration
	ScrollSettle time.Duration
	ExpandSettle time.Duration

	// CleanupTimeout bounds closing leftover tabs after a failed detail fetch
	CleanupTimeout time.Duration
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	Selectors        Selectors
	Labels           Labels
	Placeholders     Placeholders
	Timing           Timing
	EmptyListIsError bool
}
