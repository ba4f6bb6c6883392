package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
)

// element adapts a Rod element to Element.
type element struct {
	el *rod.Element
}

func (e *element) ForceClick(ctx context.Context) error {
	// Marked as a user gesture so the site's window.open is not popup-blocked.
	if _, err := e.el.Context(ctx).Evaluate(rod.Eval(`() => this.click()`).ByUser()); err != nil {
		return fmt.Errorf("browser: force click: %w", err)
	}
	return nil
}

func (e *element) ScrollIntoCenter(ctx context.Context) error {
	if _, err := e.el.Context(ctx).Eval(`() => this.scrollIntoView({block: 'center'})`); err != nil {
		return fmt.Errorf("browser: scroll into view: %w", err)
	}
	return nil
}

func (e *element) Find(ctx context.Context, selector string) (Element, error) {
	child, err := e.el.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
		}
		return nil, fmt.Errorf("browser: find %q: %w", selector, err)
	}
	return &element{el: child}, nil
}
