package crawler

import (
	"context"
	"fmt"

	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/pkg/errors"
)

// ResolveCategoryURL opens startURL, clicks the navigation link labelled
// label and returns the URL the site lands on.
func (c *Crawler) ResolveCategoryURL(ctx context.Context, drv browser.Driver, startURL, label string) (string, error) {
	log := logger.ForCrawler(stageNavigate)
	t := c.cfg.Timing

	c.report("Navigating to %s...", startURL)
	if err := drv.Navigate(ctx, startURL); err != nil {
		return "", errors.NewBrowser(stageNavigate, "load start page", err)
	}

	// Compare against the URL the browser settled on, not the requested one,
	// so a redirect on the start page is not mistaken for the category click.
	landed, err := drv.URL(ctx)
	if err != nil {
		return "", errors.NewBrowser(stageNavigate, "read start url", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.NavTimeout)
	link, err := drv.WaitElementByText(waitCtx, c.cfg.Selectors.NavLink, label)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageNavigate); stop != nil {
			return "", stop
		}
		return "", errors.NewElementNotFound(stageNavigate, fmt.Sprintf("no %q link in navigation within %s", label, t.NavTimeout), err)
	}

	c.report("Clicking on %s category...", label)
	if err := link.ForceClick(ctx); err != nil {
		return "", errors.NewBrowser(stageNavigate, "click category link", err)
	}

	waitCtx, cancel = context.WithTimeout(ctx, t.NavTimeout)
	categoryURL, err := drv.WaitURLChange(waitCtx, landed)
	cancel()
	if err != nil {
		if stop := interrupted(ctx, stageNavigate); stop != nil {
			return "", stop
		}
		return "", errors.NewNavigationTimeout(stageNavigate, fmt.Sprintf("url stayed %s", landed), err)
	}

	// The list marker is the first observable sign that the category page
	// rendered; NavSettle only bounds how long we look for it.
	if t.NavSettle > 0 {
		settleCtx, cancel := context.WithTimeout(ctx, t.NavSettle)
		if _, err := drv.WaitElement(settleCtx, c.cfg.Selectors.ListReady); err != nil {
			log.Debug().Err(err).Dur("settle", t.NavSettle).Msg("list marker not seen before settle window ended")
		}
		cancel()
		if stop := interrupted(ctx, stageNavigate); stop != nil {
			return "", stop
		}
	}

	log.Info().Str("category_url", categoryURL).Msg("category resolved")
	c.report("Category link: %s", categoryURL)
	return categoryURL, nil
}
