package config

import (
	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/ocr"
	"github.com/poku-e/portalreports/internal/portal"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/rs/zerolog"
)

// Options converts browser settings for portal.Launch.
func (b Browser) Options() portal.BrowserOptions {
	return portal.BrowserOptions{
		Headless:          b.Headless,
		Bin:               b.Bin,
		NoSandbox:         b.NoSandbox,
		UserAgent:         b.UserAgent,
		ViewportWidth:     b.ViewportWidth,
		ViewportHeight:    b.ViewportHeight,
		ElementTimeout:    b.ElementTimeout,
		NavigationTimeout: b.NavigationTimeout,
	}
}

// SolverOptions converts CAPTCHA settings into solver options.
func (c Captcha) SolverOptions(log zerolog.Logger) []captcha.Option {
	input := []ocr.InputOption{ocr.WithLanguages(c.Languages...)}
	if c.PSM > 0 {
		input = append(input, ocr.WithTesseractPSM(c.PSM))
	}
	if c.Whitelist != "" {
		input = append(input, ocr.WithTesseractWhitelist(c.Whitelist))
	}
	return []captcha.Option{
		captcha.WithMaxAttempts(c.MaxAttempts),
		captcha.WithBackoff(c.Backoff),
		captcha.WithMultiplication(c.Multiply),
		captcha.WithInputOptions(input...),
		captcha.WithLogger(log),
	}
}

// PreprocessOptions returns the image cleanup applied before OCR.
func (c Captcha) PreprocessOptions() ocr.PreprocessOptions {
	opts := ocr.DefaultPreprocessOptions()
	if c.Scale > 0 {
		opts.Scale = c.Scale
	}
	return opts
}

// Portal converts the login section.
func (l Login) Portal(log zerolog.Logger) portal.LoginConfig {
	return portal.LoginConfig{
		URL:                    l.URL,
		UsernameSelector:       l.UsernameSelector,
		ContinueSelector:       l.ContinueSelector,
		PasswordSelector:       l.PasswordSelector,
		CaptchaImageSelector:   l.CaptchaImageSelector,
		CaptchaInputSelector:   l.CaptchaInputSelector,
		CaptchaRefreshSelector: l.CaptchaRefreshSelector,
		SubmitSelector:         l.SubmitSelector,
		SuccessSelector:        l.SuccessSelector,
		RejectionSelector:      l.RejectionSelector,
		MaxAttempts:            l.MaxAttempts,
		WaitTimeout:            l.WaitTimeout,
		QuickTimeout:           l.QuickTimeout,
		Log:                    log,
	}
}

// Step builds the extraction step for the report on page.
func (r Report) Step(page portal.Page, log zerolog.Logger) *portal.TableStep {
	actions := make([]portal.Action, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, portal.Action{
			Kind:     portal.ActionKind(a.Type),
			Selector: a.Selector,
			Value:    a.Value,
			Timeout:  a.Timeout,
		})
	}
	return &portal.TableStep{
		Report:      r.Name,
		URL:         r.URL,
		Table:       r.Table,
		Empty:       r.Empty,
		Cols:        r.Columns,
		Actions:     actions,
		WaitTimeout: r.Wait,
		Page:        page,
		Log:         log,
	}
}

// Options converts workbook settings.
func (w Workbook) Options(log zerolog.Logger) []report.Option {
	opts := []report.Option{
		report.WithColumnWidths(w.MinWidth, w.MaxWidth),
		report.WithPlaceholder(w.Placeholder),
		report.WithLogger(log),
	}
	if len(w.NumericKeywords) > 0 {
		opts = append(opts, report.WithNumericKeywords(w.NumericKeywords...))
	}
	return opts
}
