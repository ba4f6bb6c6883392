package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sjsage522/passoworker/helpers"
	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// FetchMatchDetail reloads categoryURL, opens the detail tab of the card at
// index and parses it. Whatever happens after the click, the tabs opened by
// it are closed again and the original tab is active.
func (c *Crawler) FetchMatchDetail(ctx context.Context, drv browser.Driver, categoryURL string, index int) (detail *MatchDetail, err error) {
	log := logger.ForCrawler(stageDetail).WithField("index", index)
	sel := c.cfg.Selectors
	t := c.cfg.Timing

	c.report("Fetching details for match at index %d...", index)
	if err := drv.Navigate(ctx, categoryURL); err != nil {
		return nil, errors.NewBrowser(stageDetail, "load category page", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.DetailTimeout)
	if _, err := drv.WaitElement(waitCtx, sel.ListReady); err != nil {
		cancel()
		if stop := interrupted(ctx, stageDetail); stop != nil {
			return nil, stop
		}
		return nil, errors.NewNoListContent(stageDetail, "no event items rendered", err)
	}

	// Cards are enumerated with the same selector ParseMatchList numbers them
	// by, so index i is the card the list returned as i.
	cards, err := drv.WaitElements(waitCtx, sel.ListItem)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageDetail); stop != nil {
			return nil, stop
		}
		log.Warn().Err(err).Msg("list marker present but no cards matched")
		cards = nil
	}

	if index < 0 || index >= len(cards) {
		return nil, errors.NewIndexOutOfRange(stageDetail, index, len(cards))
	}
	card := cards[index]

	if err := card.ScrollIntoCenter(ctx); err != nil {
		return nil, errors.NewBrowser(stageDetail, "scroll card into view", err)
	}
	if err := sleep(ctx, t.ScrollSettle); err != nil {
		return nil, fmt.Errorf("%s: %w", stageDetail, err)
	}

	main := drv.CurrentContext()
	before, err := drv.Contexts(ctx)
	if err != nil {
		return nil, errors.NewBrowser(stageDetail, "list browsing contexts", err)
	}

	defer func() {
		if err != nil {
			c.restoreContexts(ctx, drv, main, before)
		}
	}()

	trigger, err := card.Find(ctx, sel.DetailTrigger)
	if err != nil {
		return nil, errors.NewDetailTriggerNotFound(stageDetail, fmt.Sprintf("card %d has no %s", index, sel.DetailTrigger), err)
	}
	if err := trigger.ForceClick(ctx); err != nil {
		return nil, errors.NewBrowser(stageDetail, "click detail trigger", err)
	}

	waitCtx, cancel = context.WithTimeout(ctx, t.PopupTimeout)
	open, err := drv.WaitContexts(waitCtx, len(before)+1)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageDetail); stop != nil {
			return nil, stop
		}
		return nil, errors.NewPopupTimeout(stageDetail, "detail tab did not open", err)
	}

	detailID := openedContext(before, open)
	if err := drv.SwitchContext(ctx, detailID); err != nil {
		return nil, errors.NewBrowser(stageDetail, "switch to detail tab", err)
	}

	waitCtx, cancel = context.WithTimeout(ctx, t.DetailTimeout)
	_, err = drv.WaitElement(waitCtx, sel.DetailContent)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageDetail); stop != nil {
			return nil, stop
		}
		return nil, errors.NewDetailContentTimeout(stageDetail, "ticket info did not render", err)
	}

	if err := c.expandCategories(ctx, drv); err != nil {
		return nil, err
	}

	html, err := drv.HTML(ctx)
	if err != nil {
		return nil, errors.NewBrowser(stageDetail, "snapshot detail page", err)
	}

	detail, err = c.ParseMatchDetail(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	if err := drv.CloseContext(ctx, detailID); err != nil {
		return nil, errors.NewBrowser(stageDetail, "close detail tab", err)
	}
	if err := drv.SwitchContext(ctx, main); err != nil {
		return nil, errors.NewBrowser(stageDetail, "switch back to list tab", err)
	}

	log.Info().
		Str("date", detail.Date).
		Str("venue", detail.Venue).
		Int("categories", len(detail.Categories)).
		Msg("detail fetched")
	c.report("Details acquired.")
	return detail, nil
}

// expandCategories clicks the "show all categories" control when the page
// has one. A missing control is normal for short lists and only reported.
// The returned error is non-nil only when ctx was cancelled.
func (c *Crawler) expandCategories(ctx context.Context, drv browser.Driver) error {
	log := logger.ForCrawler(stageDetail)
	sel := c.cfg.Selectors
	t := c.cfg.Timing

	waitCtx, cancel := context.WithTimeout(ctx, t.ExpandTimeout)
	control, err := drv.WaitElementByText(waitCtx, sel.ExpandControl, c.cfg.Labels.Expand)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageDetail); stop != nil {
			return stop
		}
		log.Info().Err(err).Msg("expand control not found")
		c.report("Expand button not found or list already full.")
		return nil
	}

	c.report("Expand button found. Clicking...")
	if err := control.ForceClick(ctx); err != nil {
		log.Info().Err(err).Msg("expand click failed, parsing collapsed list")
		return interrupted(ctx, stageDetail)
	}

	// Once expanded the site swaps in the collapse control; ExpandSettle only
	// bounds how long we wait for it.
	if t.ExpandSettle > 0 {
		settleCtx, cancel := context.WithTimeout(ctx, t.ExpandSettle)
		if _, err := drv.WaitElementByText(settleCtx, sel.ExpandControl, c.cfg.Labels.Collapse); err != nil {
			log.Debug().Err(err).Dur("settle", t.ExpandSettle).Msg("collapse control not seen before settle window ended")
		}
		cancel()
	}
	return interrupted(ctx, stageDetail)
}

// restoreContexts closes the tabs that were not open before the detail click
// and re-activates main. It runs on a context detached from the caller's
// cancellation so that a cancelled fetch still leaves the session usable.
func (c *Crawler) restoreContexts(ctx context.Context, drv browser.Driver, main string, before []string) {
	log := logger.ForCrawler(stageDetail)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timing.CleanupTimeout)
	defer cancel()

	open, err := drv.Contexts(cleanupCtx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup: list browsing contexts")
	}
	known := make(map[string]bool, len(before)+1)
	known[main] = true
	for _, id := range before {
		known[id] = true
	}
	for _, id := range open {
		if known[id] {
			continue
		}
		if err := drv.CloseContext(cleanupCtx, id); err != nil {
			log.Error().Err(err).Str("context", id).Msg("cleanup: close tab")
		}
	}
	if err := drv.SwitchContext(cleanupCtx, main); err != nil {
		log.Error().Err(err).Msg("cleanup: switch back to list tab")
	}
}

// openedContext returns the first context not present before the click,
// falling back to the last one listed.
func openedContext(before, open []string) string {
	known := make(map[string]bool, len(before))
	for _, id := range before {
		known[id] = true
	}
	for _, id := range open {
		if !known[id] {
			return id
		}
	}
	return open[len(open)-1]
}

// ParseMatchDetail extracts date, venue and ticket categories from a detail
// page snapshot
func (c *Crawler) ParseMatchDetail(r io.Reader) (*MatchDetail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.NewParsing(stageDetail, "parse detail html", err)
	}

	sel := c.cfg.Selectors
	detail := &MatchDetail{Categories: []string{}}

	sidebar := doc.Find(sel.Sidebar).First()
	if sidebar.Length() == 0 {
		return detail, nil
	}

	if date := sidebar.Find(sel.DetailDate).First(); date.Length() > 0 {
		detail.Date = helpers.NormalizeSpace(date.Text())
	}
	if venue := sidebar.Find(sel.Venue).First(); venue.Length() > 0 {
		detail.Venue = helpers.NormalizeSpace(venue.Text())
	}

	icon := sidebar.Find(sel.CategoryIcon).First()
	if icon.Length() == 0 {
		return detail, nil
	}
	box := icon.Closest(sel.CategoryBox)
	box.Find(sel.CategoryItems).Each(func(_ int, item *goquery.Selection) {
		text := helpers.NormalizeSpace(item.Text())
		if text == "" || c.isControlLabel(text) {
			return
		}
		detail.Categories = append(detail.Categories, text)
	})

	return detail, nil
}

func (c *Crawler) isControlLabel(text string) bool {
	return helpers.SameLabel(text, c.cfg.Labels.Expand) || helpers.SameLabel(text, c.cfg.Labels.Collapse)
}
