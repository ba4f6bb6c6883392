package crawler

import (
	"context"
	"testing"

	"sjsage522/passoworker/internal/browser/browsertest"
	"sjsage522/passoworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCategoryURL(t *testing.T) {
	drv := browsertest.NewDriver(sitePages())
	c, rec := newTestCrawler(testCrawlerConfig())

	url, err := c.ResolveCategoryURL(context.Background(), drv, startURL, "Futbol")

	require.NoError(t, err)
	assert.Equal(t, footballURL, url)
	assert.Equal(t, []string{startURL}, drv.Navigations())
	assert.Equal(t, []string{"Futbol"}, drv.Clicks())
	assert.Contains(t, rec.all(), "Clicking on Futbol category...")
	assert.Contains(t, rec.all(), "Category link: "+footballURL)
}

func TestResolveCategoryURL_MatchesIconLabelOnly(t *testing.T) {
	pages := sitePages()
	pages[startURL] = `<div id="navbar-content">
  <a href="https://passo.test/tr/kategori/milli-takim"><span>Futbol Milli Takım</span></a>
  <a href="https://passo.test/tr/kategori/futbol"><i>Futbol</i></a>
</div>`
	drv := browsertest.NewDriver(pages)
	c, _ := newTestCrawler(testCrawlerConfig())

	url, err := c.ResolveCategoryURL(context.Background(), drv, startURL, "Futbol")

	require.NoError(t, err)
	assert.Equal(t, footballURL, url)
}

func TestResolveCategoryURL_LabelMissing(t *testing.T) {
	drv := browsertest.NewDriver(sitePages())
	c, _ := newTestCrawler(testCrawlerConfig())

	url, err := c.ResolveCategoryURL(context.Background(), drv, startURL, "Voleybol")

	assert.Empty(t, url)
	assert.True(t, errors.Is(err, errors.ErrElementNotFound), "got %v", err)
	assert.Empty(t, drv.Clicks())
}

func TestResolveCategoryURL_URLUnchanged(t *testing.T) {
	pages := sitePages()
	pages[startURL] = `<div id="navbar-content"><a href="https://passo.test/tr"><i>Futbol</i></a></div>`
	drv := browsertest.NewDriver(pages)
	c, _ := newTestCrawler(testCrawlerConfig())

	_, err := c.ResolveCategoryURL(context.Background(), drv, startURL, "Futbol")

	assert.True(t, errors.Is(err, errors.ErrNavigationTimeout), "got %v", err)
}

func TestResolveCategoryURL_SettleWithoutListMarker(t *testing.T) {
	pages := sitePages()
	pages[footballURL] = `<html><body><p>Yükleniyor</p></body></html>`
	drv := browsertest.NewDriver(pages)
	c, _ := newTestCrawler(testCrawlerConfig())

	// A category page that is still rendering is not a navigation failure.
	url, err := c.ResolveCategoryURL(context.Background(), drv, startURL, "Futbol")

	require.NoError(t, err)
	assert.Equal(t, footballURL, url)
}

func TestResolveCategoryURL_Cancelled(t *testing.T) {
	drv := browsertest.NewDriver(sitePages())
	c, _ := newTestCrawler(testCrawlerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ResolveCategoryURL(ctx, drv, startURL, "Futbol")

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, errors.ErrNavigationTimeout))
}
