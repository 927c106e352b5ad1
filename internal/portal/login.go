package portal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/rs/zerolog"
)

const (
	DefaultLoginAttempts = 3
	DefaultQuickTimeout  = time.Second
	DefaultWaitTimeout   = 30 * time.Second

	captchaPollInterval = 50 * time.Millisecond
)

// CaptchaSolver answers the CAPTCHA images a provider captures.
type CaptchaSolver interface {
	SolveWithRetry(ctx context.Context, provider captcha.ImageProvider, onRetry captcha.RetryFunc) (int, error)
}

// LoginConfig holds the login page URL and the selectors of its form.
type LoginConfig struct {
	URL string

	UsernameSelector string
	// ContinueSelector, when set, is clicked after the username to reveal
	// the password step.
	ContinueSelector string
	PasswordSelector string

	CaptchaImageSelector string
	CaptchaInputSelector string
	// CaptchaRefreshSelector requests a new image. Without it the login page
	// is reloaded and the form refilled.
	CaptchaRefreshSelector string

	SubmitSelector string
	// SuccessSelector appears only once logged in.
	SuccessSelector string
	// RejectionSelector shows the portal's error banner, for example after a
	// wrong CAPTCHA answer.
	RejectionSelector string

	MaxAttempts  int
	WaitTimeout  time.Duration
	QuickTimeout time.Duration

	Log zerolog.Logger
}

func (c LoginConfig) withDefaults() LoginConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultLoginAttempts
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.QuickTimeout <= 0 {
		c.QuickTimeout = DefaultQuickTimeout
	}
	return c
}

// Login signs in, restarting the whole form when the portal rejects the
// submission or the CAPTCHA cannot be solved. It gives up with a
// *LoginError after MaxAttempts full attempts.
func Login(ctx context.Context, page Page, solver CaptchaSolver, cfg LoginConfig, creds report.Credentials) error {
	cfg = cfg.withDefaults()
	log := cfg.Log

	var last error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", captcha.ErrCancelled, err)
		}
		alog := log.With().Int("login_attempt", attempt).Logger()
		alog.Info().Msg("logging in")

		err := loginOnce(ctx, page, solver, cfg, creds, alog)
		if err == nil {
			alog.Info().Msg("logged in")
			return nil
		}
		if errors.Is(err, captcha.ErrCancelled) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", captcha.ErrCancelled, ctxErr)
		}
		last = err
		alog.Warn().Err(err).Msg("login attempt failed")
	}
	return &LoginError{Attempts: cfg.MaxAttempts, Last: last}
}

func loginOnce(ctx context.Context, page Page, solver CaptchaSolver, cfg LoginConfig, creds report.Credentials, log zerolog.Logger) error {
	if err := openForm(ctx, page, cfg, creds); err != nil {
		return err
	}

	first := true
	provider := func(ctx context.Context) ([]byte, error) {
		if !first {
			if cfg.CaptchaRefreshSelector != "" {
				if err := refreshCaptcha(ctx, page, cfg, log); err != nil {
					return nil, err
				}
			} else if err := openForm(ctx, page, cfg, creds); err != nil {
				return nil, err
			}
		}
		first = false
		if err := requireVisible(ctx, page, cfg.CaptchaImageSelector, cfg.WaitTimeout); err != nil {
			return nil, err
		}
		return page.Screenshot(ctx, cfg.CaptchaImageSelector)
	}
	onRetry := func(a captcha.Attempt) {
		log.Info().
			Int("attempt", a.Number).
			Str("outcome", string(a.Outcome)).
			Str("ocr_text", a.RawText).
			Msg("captcha not solved, retrying")
	}

	answer, err := solver.SolveWithRetry(ctx, provider, onRetry)
	if err != nil {
		return fmt.Errorf("solve captcha: %w", err)
	}
	if err := page.Fill(ctx, cfg.CaptchaInputSelector, strconv.Itoa(answer)); err != nil {
		return err
	}
	if err := page.Click(ctx, cfg.SubmitSelector); err != nil {
		return err
	}
	return awaitLoginResult(ctx, page, cfg)
}

// refreshCaptcha clicks the refresh control and waits until the image
// markup changes, so the next capture is not the image just rejected. An
// image whose markup never changes is captured anyway once WaitTimeout
// passes.
func refreshCaptcha(ctx context.Context, page Page, cfg LoginConfig, log zerolog.Logger) error {
	before, htmlErr := page.HTML(ctx, cfg.CaptchaImageSelector)
	if err := page.Click(ctx, cfg.CaptchaRefreshSelector); err != nil {
		return err
	}
	if htmlErr != nil {
		return nil
	}
	deadline := time.Now().Add(cfg.WaitTimeout)
	for {
		after, err := page.HTML(ctx, cfg.CaptchaImageSelector)
		if err == nil && after != before {
			return nil
		}
		if time.Now().After(deadline) {
			log.Warn().Msg("captcha image unchanged after refresh")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(captchaPollInterval):
		}
	}
}

func openForm(ctx context.Context, page Page, cfg LoginConfig, creds report.Credentials) error {
	if err := page.Navigate(ctx, cfg.URL); err != nil {
		return err
	}
	if err := requireVisible(ctx, page, cfg.UsernameSelector, cfg.WaitTimeout); err != nil {
		return err
	}
	if err := page.Fill(ctx, cfg.UsernameSelector, creds.Username); err != nil {
		return err
	}
	if cfg.ContinueSelector != "" {
		if err := page.Click(ctx, cfg.ContinueSelector); err != nil {
			return err
		}
	}
	if err := requireVisible(ctx, page, cfg.PasswordSelector, cfg.WaitTimeout); err != nil {
		return err
	}
	return page.Fill(ctx, cfg.PasswordSelector, creds.Password)
}

// awaitLoginResult polls for the rejection and success markers until one
// shows or WaitTimeout passes.
func awaitLoginResult(ctx context.Context, page Page, cfg LoginConfig) error {
	deadline := time.Now().Add(cfg.WaitTimeout)
	for {
		if cfg.RejectionSelector != "" {
			rejected, err := page.WaitFor(ctx, cfg.RejectionSelector, cfg.QuickTimeout)
			if err != nil {
				return err
			}
			if rejected {
				msg, _ := page.Text(ctx, cfg.RejectionSelector)
				return fmt.Errorf("%w: %s", captcha.ErrRejectedByPortal, msg)
			}
		}
		ok, err := page.WaitFor(ctx, cfg.SuccessSelector, cfg.QuickTimeout)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLoginUndetermined
		}
	}
}
