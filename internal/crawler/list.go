package crawler

import (
	"context"
	"io"
	"strings"

	"sjsage522/passoworker/helpers"
	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// FetchMatchList loads categoryURL and returns its event cards in DOM order.
func (c *Crawler) FetchMatchList(ctx context.Context, drv browser.Driver, categoryURL string) ([]MatchSummary, error) {
	log := logger.ForCrawler(stageList)

	c.report("Listing matches...")
	if err := drv.Navigate(ctx, categoryURL); err != nil {
		return nil, errors.NewBrowser(stageList, "load category page", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.Timing.ListTimeout)
	_, err := drv.WaitElement(waitCtx, c.cfg.Selectors.ListReady)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageList); stop != nil {
			return nil, stop
		}
		return nil, errors.NewNoListContent(stageList, "no event items rendered", err)
	}

	html, err := drv.HTML(ctx)
	if err != nil {
		return nil, errors.NewBrowser(stageList, "snapshot list page", err)
	}

	matches, err := c.ParseMatchList(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		if c.cfg.EmptyListIsError {
			return nil, errors.NewNoListContent(stageList, "list marker present but no items parsed", nil)
		}
		log.Warn().Str("url", categoryURL).Msg("list marker present but no items parsed")
	}

	log.Info().Int("count", len(matches)).Msg("list fetched")
	c.report("List fetched successfully.")
	return matches, nil
}

// ParseMatchList extracts event cards from a list page snapshot
func (c *Crawler) ParseMatchList(r io.Reader) ([]MatchSummary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.NewParsing(stageList, "parse list html", err)
	}

	sel := c.cfg.Selectors
	ph := c.cfg.Placeholders

	items := doc.Find(sel.ListItem)
	matches := make([]MatchSummary, 0, items.Length())
	items.Each(func(i int, s *goquery.Selection) {
		matches = append(matches, MatchSummary{
			Index:    i,
			Title:    fieldText(s, sel.Title, ph.Title),
			Date:     fieldText(s, sel.Date, ph.Date),
			Location: fieldText(s, sel.Location, ph.Location),
		})
	})

	return matches, nil
}

// fieldText returns the normalized text of the first match of selector
// inside s, or placeholder when there is none.
func fieldText(s *goquery.Selection, selector, placeholder string) string {
	field := s.Find(selector).First()
	if field.Length() == 0 {
		return placeholder
	}
	return helpers.NormalizeSpace(field.Text())
}
