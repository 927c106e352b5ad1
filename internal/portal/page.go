// Package portal drives the tax portal through a browser page: login with
// CAPTCHA solving and table extraction, all addressed by configured selectors.
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExtractionEmpty means the report table never appeared.
	ErrExtractionEmpty = errors.New("report table not found")
	// ErrElementNotFound means a required element did not become visible in time.
	ErrElementNotFound = errors.New("element not found")
	// ErrLoginUndetermined means neither the success nor the rejection marker
	// showed up after submitting the login form.
	ErrLoginUndetermined = errors.New("login result not detected")
)

// LoginError is returned after every full login attempt failed.
type LoginError struct {
	Attempts int
	Last     error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *LoginError) Unwrap() error {
	return e.Last
}

// Page is the subset of browser control the portal flows need. Every call
// is bounded by ctx and the implementation's own element timeouts.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// Screenshot captures the element as PNG.
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	// WaitFor reports whether selector became visible within timeout. Timing
	// out is not an error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	// HTML returns the outer HTML of the element.
	HTML(ctx context.Context, selector string) (string, error)
	// ExpectDialog arms a handler for the next JavaScript dialog. It must be
	// called before the action that opens the dialog; the handler stops when
	// ctx is done.
	ExpectDialog(ctx context.Context, accept bool) PendingDialog
}

// PendingDialog is a dialog the page is waiting on.
type PendingDialog interface {
	// Wait blocks until the dialog was shown and answered, returning its
	// message.
	Wait(ctx context.Context) (string, error)
}

func requireVisible(ctx context.Context, p Page, selector string, timeout time.Duration) error {
	ok, err := p.WaitFor(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}
