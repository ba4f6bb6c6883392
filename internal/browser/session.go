package browser

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/pkg/errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// hideWebdriverJS runs before any page script in every new document of the
// main context.
const hideWebdriverJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// hideWebdriverNowJS hides the flag on a document that already loaded.
const hideWebdriverNowJS = `() => { Object.defineProperty(navigator, 'webdriver', {get: () => undefined, configurable: true}) }`

// contextPollInterval is how often WaitContexts re-lists open tabs.
const contextPollInterval = 100 * time.Millisecond

// urlPollInterval is how often WaitURLChange re-reads the active tab's URL.
const urlPollInterval = 50 * time.Millisecond

// Config configures the browser session.
type Config struct {
	// Headless runs Chrome without a window.
	Headless bool

	// Bin is the Chrome binary. Empty lets the launcher find or download one.
	Bin string

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	WindowWidth  int
	WindowHeight int
	UserAgent    string

	// NoSandbox disables the Chrome sandbox for container compatibility.
	NoSandbox bool

	// Proxy is passed to Chrome as --proxy-server when set.
	Proxy string
}

// Session is the single live browser handle of a run. It is not safe for
// concurrent use; callers serialize operations.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	log     *logger.Logger

	// masked records the tabs the stealth settings were applied to
	masked map[proto.TargetTargetID]bool
}

var _ Driver = (*Session)(nil)

// NewSession launches Chrome (or connects to a remote instance) with stealth
// settings applied and opens the main browsing context. Any failure is a
// SessionInitError; there is no retry.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	log := logger.ForSession()
	s := &Session{cfg: cfg, log: log, masked: make(map[proto.TargetTargetID]bool)}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		log.Info().Str("url", wsURL).Msg("connecting to remote chrome")
	} else {
		l := s.newLauncher(ctx)
		u, err := l.Launch()
		if err != nil {
			return nil, errors.NewSessionInit("launch chrome", err)
		}
		wsURL = u
		s.lnch = l
		log.Info().Str("url", wsURL).Bool("headless", cfg.Headless).Msg("launched local chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, errors.NewSessionInit("connect to chrome", err)
	}
	s.browser = b

	page, err := s.newStealthPage()
	if err != nil {
		s.cleanup()
		return nil, errors.NewSessionInit("open main context", err)
	}
	s.page = page

	return s, nil
}

func (s *Session) newLauncher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(s.cfg.Headless).
		NoSandbox(s.cfg.NoSandbox).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", s.cfg.WindowWidth, s.cfg.WindowHeight)).
		Delete("enable-automation")

	if s.cfg.UserAgent != "" {
		l = l.Set("user-agent", s.cfg.UserAgent)
	}
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	if s.cfg.Proxy != "" {
		l = l.Proxy(s.cfg.Proxy)
		s.log.Info().Str("proxy", s.cfg.Proxy).Msg("routing browser through proxy")
	}
	return l
}

// newStealthPage opens a tab with go-rod/stealth injected and the session's
// masking applied.
func (s *Session) newStealthPage() (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := s.mask(page); err != nil {
		return nil, err
	}
	return page, nil
}

// mask overrides the user agent at protocol level, fixes the viewport and
// hides navigator.webdriver in every later document of page.
func (s *Session) mask(page *rod.Page) error {
	if s.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent}); err != nil {
			return fmt.Errorf("browser: set user agent: %w", err)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.WindowWidth,
		Height:            s.cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("browser: set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(hideWebdriverJS); err != nil {
		return fmt.Errorf("browser: hide webdriver flag: %w", err)
	}

	s.masked[page.TargetID] = true
	return nil
}

// maskOpened applies the stealth settings to a tab the site opened itself.
// Its current document already loaded, so the scripts also run on it once.
func (s *Session) maskOpened(ctx context.Context, page *rod.Page) {
	p := page.Context(ctx)
	if _, err := p.EvalOnNewDocument(stealth.JS); err != nil {
		s.log.Warn().Err(err).Str("context", string(page.TargetID)).Msg("stealth script not installed")
	}
	if err := s.mask(p); err != nil {
		s.log.Warn().Err(err).Str("context", string(page.TargetID)).Msg("tab not masked")
		return
	}
	if _, err := p.Eval(hideWebdriverNowJS); err != nil {
		s.log.Debug().Err(err).Str("context", string(page.TargetID)).Msg("webdriver flag not hidden on loaded document")
	}
}

// Close shuts down Chrome and removes the launcher's profile directory.
func (s *Session) Close() error {
	s.log.Info().Msg("closing browser session")
	return s.cleanup()
}

func (s *Session) cleanup() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	s.page = nil
	return err
}

func (s *Session) active() (*rod.Page, error) {
	if s.page == nil {
		return nil, fmt.Errorf("browser: no active browsing context")
	}
	return s.page, nil
}

// Navigate implements Driver.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page, err := s.active()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// URL implements Driver.
func (s *Session) URL(ctx context.Context) (string, error) {
	page, err := s.active()
	if err != nil {
		return "", err
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

// WaitURLChange implements Driver. It polls the target info rather than
// evaluating script, since a navigation destroys the page's JS context
// mid-wait.
func (s *Session) WaitURLChange(ctx context.Context, from string) (string, error) {
	page, err := s.active()
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	for {
		info, err := page.Context(ctx).Info()
		if err == nil && info.URL != from {
			return info.URL, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("browser: wait url change from %s: %w", from, ctx.Err())
		case <-ticker.C:
		}
	}
}

// HTML implements Driver.
func (s *Session) HTML(ctx context.Context) (string, error) {
	page, err := s.active()
	if err != nil {
		return "", err
	}
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return html, nil
}

// WaitElement implements Driver.
func (s *Session) WaitElement(ctx context.Context, selector string) (Element, error) {
	page, err := s.active()
	if err != nil {
		return nil, err
	}
	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: wait element %q: %w", selector, err)
	}
	return &element{el: el}, nil
}

// WaitElements implements Driver.
func (s *Session) WaitElements(ctx context.Context, selector string) ([]Element, error) {
	if _, err := s.WaitElement(ctx, selector); err != nil {
		return nil, err
	}
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: list elements %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out, nil
}

// WaitElementByText implements Driver.
func (s *Session) WaitElementByText(ctx context.Context, selector, text string) (Element, error) {
	page, err := s.active()
	if err != nil {
		return nil, err
	}
	el, err := page.Context(ctx).ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return nil, fmt.Errorf("browser: wait element %q with text %q: %w", selector, text, err)
	}
	return &element{el: el}, nil
}

// CurrentContext implements Driver.
func (s *Session) CurrentContext() string {
	if s.page == nil {
		return ""
	}
	return string(s.page.TargetID)
}

// Contexts implements Driver.
func (s *Session) Contexts(ctx context.Context) ([]string, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, string(p.TargetID))
	}
	return ids, nil
}

// WaitContexts implements Driver.
func (s *Session) WaitContexts(ctx context.Context, min int) ([]string, error) {
	ticker := time.NewTicker(contextPollInterval)
	defer ticker.Stop()

	for {
		ids, err := s.Contexts(ctx)
		if err == nil && len(ids) >= min {
			return ids, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("browser: wait for %d contexts: %w", min, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SwitchContext implements Driver.
func (s *Session) SwitchContext(ctx context.Context, id string) error {
	// The stored page must not inherit ctx, which is usually a short wait window.
	page, err := s.browser.PageFromTarget(proto.TargetTargetID(id))
	if err != nil {
		return fmt.Errorf("browser: attach context %s: %w", id, err)
	}
	if _, err := page.Context(ctx).Activate(); err != nil {
		return fmt.Errorf("browser: activate context %s: %w", id, err)
	}
	if !s.masked[page.TargetID] {
		s.maskOpened(ctx, page)
	}
	s.page = page
	return nil
}

// CloseContext implements Driver.
func (s *Session) CloseContext(ctx context.Context, id string) error {
	page, err := s.browser.Context(ctx).PageFromTarget(proto.TargetTargetID(id))
	if err != nil {
		return fmt.Errorf("browser: attach context %s: %w", id, err)
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("browser: close context %s: %w", id, err)
	}
	delete(s.masked, page.TargetID)
	if s.page != nil && s.page.TargetID == page.TargetID {
		s.page = nil
	}
	return nil
}
