package crawler

import (
	"context"
	"strings"
	"testing"

	"sjsage522/passoworker/internal/browser/browsertest"
	"sjsage522/passoworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMatchList(t *testing.T) {
	drv := browsertest.NewDriver(sitePages())
	c, rec := newTestCrawler(testCrawlerConfig())

	matches, err := c.FetchMatchList(context.Background(), drv, footballURL)

	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, MatchSummary{Index: 0, Title: "Galatasaray - Fenerbahçe", Date: "12 Ekim 2025", Location: "RAMS Park"}, matches[0])
	assert.Equal(t, MatchSummary{Index: 1, Title: "Beşiktaş - Trabzonspor", Date: "No Date", Location: "Tüpraş Stadyumu"}, matches[1])
	assert.Equal(t, MatchSummary{Index: 2, Title: "No Title", Date: "20 Ekim 2025", Location: "Ülker Stadyumu"}, matches[2])

	assert.Equal(t, []string{footballURL}, drv.Navigations())
	assert.Equal(t, []string{"Listing matches...", "List fetched successfully."}, rec.all())
}

func TestFetchMatchList_NoItems(t *testing.T) {
	pages := sitePages()
	pages[footballURL] = `<html><body><p>Etkinlik bulunamadı</p></body></html>`
	drv := browsertest.NewDriver(pages)
	c, rec := newTestCrawler(testCrawlerConfig())

	matches, err := c.FetchMatchList(context.Background(), drv, footballURL)

	assert.Nil(t, matches)
	assert.True(t, errors.Is(err, errors.ErrNoListContent), "got %v", err)
	assert.NotContains(t, rec.all(), "List fetched successfully.")
}

func TestFetchMatchList_MarkerWithoutCards(t *testing.T) {
	pages := sitePages()
	pages[footballURL] = `<html><body><span class="r-event-item"></span></body></html>`

	t.Run("empty list by default", func(t *testing.T) {
		c, _ := newTestCrawler(testCrawlerConfig())
		matches, err := c.FetchMatchList(context.Background(), browsertest.NewDriver(pages), footballURL)

		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("error when configured", func(t *testing.T) {
		cfg := testCrawlerConfig()
		cfg.EmptyListIsError = true
		c, _ := newTestCrawler(cfg)
		_, err := c.FetchMatchList(context.Background(), browsertest.NewDriver(pages), footballURL)

		assert.True(t, errors.Is(err, errors.ErrNoListContent), "got %v", err)
	})
}

func TestFetchMatchList_Cancelled(t *testing.T) {
	pages := sitePages()
	pages[footballURL] = `<html><body></body></html>`
	drv := browsertest.NewDriver(pages)
	c, _ := newTestCrawler(testCrawlerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchMatchList(ctx, drv, footballURL)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, errors.ErrNoListContent))
}

func TestParseMatchList_DenseIndices(t *testing.T) {
	c := NewCrawler(DefaultCrawlerConfig(), nil)
	html := `<div class="r-event-item"><div class="r-title">A</div></div>
<span class="r-event-item"><div class="r-title">not a card</div></span>
<div class="r-event-item"><div class="r-title">B</div></div>`

	matches, err := c.ParseMatchList(strings.NewReader(html))

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, "A", matches[0].Title)
	assert.Equal(t, 1, matches[1].Index)
	assert.Equal(t, "B", matches[1].Title)
	assert.Equal(t, "No Location", matches[1].Location)
}
