package browser_test

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/internal/crawler"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubSite serves a minimal copy of the site's markup
func newStubSite() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/tr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="navbar-content">
<a href="/tr/kategori/futbol"><i>Futbol</i></a></div></body></html>`)
	})
	mux.HandleFunc("/tr/kategori/futbol", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="r-event-item"><div class="r-title">Galatasaray - Fenerbahçe</div>
<span class="r-date">12 Ekim 2025</span><span class="r-location">RAMS Park</span>
<div class="overlay-text-container" onclick="window.open('/tr/etkinlik/0')">Detay</div></div>
</body></html>`)
	})
	mux.HandleFunc("/tr/etkinlik/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="col-md-4 ticket-info">
<div class="box first"><ul><li>12 Ekim 2025 20:00</li></ul></div>
<div class="box"><span class="text-primary">RAMS Park</span></div>
<div class="box"><i class="passo-icon-hastag"></i><ul id="cats"><li>Kategori 1</li>
<li><span onclick="document.getElementById('cats').innerHTML='<li>Kategori 1</li><li>Kategori 2</li><li><span>Gizle</span></li>'">Tüm kategorileri göster</span></li>
</ul></div></div></body></html>`)
	})
	mux.HandleFunc("/popup", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><button onclick="window.open('/ua')">Aç</button></body></html>`)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><p id="ua">%s</p><p id="wd"></p>
<script>document.getElementById('wd').textContent = 'webdriver=' + String(navigator.webdriver)</script>
</body></html>`, html.EscapeString(r.UserAgent()))
	})
	return httptest.NewServer(mux)
}

const testUserAgent = "passoworker-test-agent/1.0"

// newTestSession launches a headless Chrome, skipping when none is installed
func newTestSession(t *testing.T, ctx context.Context) *browser.Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no local Chrome available")
	}

	sess, err := browser.NewSession(ctx, browser.Config{
		Headless:     true,
		Bin:          bin,
		WindowWidth:  1280,
		WindowHeight: 800,
		UserAgent:    testUserAgent,
		NoSandbox:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestSessionEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sess := newTestSession(t, ctx)

	site := newStubSite()
	defer site.Close()

	cfg := crawler.DefaultCrawlerConfig()
	cfg.Timing.NavTimeout = 10 * time.Second
	cfg.Timing.NavSettle = 500 * time.Millisecond
	cfg.Timing.ScrollSettle = 0
	c := crawler.NewCrawler(cfg, nil)

	categoryURL, err := c.ResolveCategoryURL(ctx, sess, site.URL+"/tr", "Futbol")
	require.NoError(t, err)
	assert.Equal(t, site.URL+"/tr/kategori/futbol", categoryURL)

	matches, err := c.FetchMatchList(ctx, sess, categoryURL)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Galatasaray - Fenerbahçe", matches[0].Title)

	main := sess.CurrentContext()
	before, err := sess.Contexts(ctx)
	require.NoError(t, err)
	detail, err := c.FetchMatchDetail(ctx, sess, categoryURL, 0)
	require.NoError(t, err)
	assert.Equal(t, "RAMS Park", detail.Venue)
	assert.Equal(t, []string{"Kategori 1", "Kategori 2"}, detail.Categories)

	open, err := sess.Contexts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, open)
	assert.Equal(t, main, sess.CurrentContext())
}

func TestSessionWaitURLChangeAcrossNavigation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sess := newTestSession(t, ctx)

	site := newStubSite()
	defer site.Close()

	require.NoError(t, sess.Navigate(ctx, site.URL+"/tr"))
	from, err := sess.URL(ctx)
	require.NoError(t, err)

	icon, err := sess.WaitElementByText(ctx, "#navbar-content a i", "Futbol")
	require.NoError(t, err)
	require.NoError(t, icon.ForceClick(ctx))

	// The click replaces the document while the wait is polling.
	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	url, err := sess.WaitURLChange(waitCtx, from)

	require.NoError(t, err)
	assert.Equal(t, site.URL+"/tr/kategori/futbol", url)
}

func TestSessionMasksOpenedTabs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sess := newTestSession(t, ctx)

	site := newStubSite()
	defer site.Close()

	require.NoError(t, sess.Navigate(ctx, site.URL+"/popup"))
	main := sess.CurrentContext()
	before, err := sess.Contexts(ctx)
	require.NoError(t, err)
	button, err := sess.WaitElement(ctx, "button")
	require.NoError(t, err)
	require.NoError(t, button.ForceClick(ctx))

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	open, err := sess.WaitContexts(waitCtx, len(before)+1)
	require.NoError(t, err)

	var opened string
	for _, id := range open {
		if !slices.Contains(before, id) {
			opened = id
		}
	}
	require.NotEmpty(t, opened)
	require.NoError(t, sess.SwitchContext(ctx, opened))

	require.NoError(t, sess.Navigate(ctx, site.URL+"/ua"))
	_, err = sess.WaitElementByText(waitCtx, "#wd", "webdriver=")
	require.NoError(t, err)
	page, err := sess.HTML(ctx)
	require.NoError(t, err)

	assert.Contains(t, page, testUserAgent)
	assert.Contains(t, page, "webdriver=undefined")

	require.NoError(t, sess.CloseContext(ctx, opened))
	require.NoError(t, sess.SwitchContext(ctx, main))
}
