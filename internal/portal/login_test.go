package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/ocr"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogin = LoginConfig{
	URL:                  "https://portal.example/login",
	UsernameSelector:     "#pin",
	ContinueSelector:     "#continue",
	PasswordSelector:     "#password",
	CaptchaImageSelector: "#captcha",
	CaptchaInputSelector: "#captcha-answer",
	SubmitSelector:       "#submit",
	SuccessSelector:      "#dashboard",
	RejectionSelector:    "#error",
	WaitTimeout:          50 * time.Millisecond,
	QuickTimeout:         time.Millisecond,
}

var testCreds = report.Credentials{Username: "P051234567X", Password: "s3cret"}

// scriptedSolver OCRs each captured image as the next text in texts.
func scriptedSolver(maxAttempts int, texts ...string) *captcha.Solver {
	i := 0
	engine := ocr.EngineFunc(func(_ context.Context, in ocr.Input) (ocr.Result, error) {
		text := texts[len(texts)-1]
		if i < len(texts) {
			text = texts[i]
		}
		i++
		return ocr.Result{InputID: in.ID, PlainText: text}, nil
	})
	return captcha.NewSolver(engine,
		captcha.WithMaxAttempts(maxAttempts),
		captcha.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestLoginSuccess(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" }

	err := Login(context.Background(), page, scriptedSolver(3, "12 + 7 = ?"), testLogin, testCreds)
	require.NoError(t, err)

	assert.Equal(t, "P051234567X", page.filled["#pin"])
	assert.Equal(t, "s3cret", page.filled["#password"])
	assert.Equal(t, "19", page.filled["#captcha-answer"])
	assert.Equal(t, 1, page.submits)
	assert.Equal(t, []string{
		"navigate https://portal.example/login",
		"fill #pin",
		"click #continue",
		"fill #password",
		"screenshot #captcha",
		"fill #captcha-answer",
		"click #submit",
	}, page.calls)
}

func TestLoginRestartsAfterRejection(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.texts["#error"] = "Invalid arithmetic result"
	page.visible = func(sel string) bool {
		if sel == "#error" {
			return page.submits == 1
		}
		return true
	}

	err := Login(context.Background(), page, scriptedSolver(3, "3 + 4", "10 - 2"), testLogin, testCreds)
	require.NoError(t, err)

	assert.Equal(t, 2, page.submits)
	assert.Equal(t, "8", page.filled["#captcha-answer"])
}

func TestLoginGivesUpAfterMaxAttempts(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	cfg := testLogin
	cfg.MaxAttempts = 2

	err := Login(context.Background(), page, scriptedSolver(3, "1 + 1"), cfg, testCreds)
	require.Error(t, err)

	var le *LoginError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Attempts)
	assert.ErrorIs(t, err, captcha.ErrRejectedByPortal)
	assert.Equal(t, 2, page.submits)
}

func TestLoginCaptchaExhaustionRestartsForm(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" }
	cfg := testLogin
	cfg.CaptchaRefreshSelector = "#refresh"

	// Two unreadable images exhaust the first form; the third solves.
	err := Login(context.Background(), page, scriptedSolver(2, "??", "abc", "6 - 1"), cfg, testCreds)
	require.NoError(t, err)

	assert.Equal(t, 3, page.screenshots)
	assert.Equal(t, "5", page.filled["#captcha-answer"])
	assert.Contains(t, page.calls, "click #refresh")
	assert.Equal(t, 1, page.submits)
}

func TestLoginWaitsForRefreshedCaptcha(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" }
	page.html["#captcha"] = `<img src="/captcha?n=1">`

	// The new image replaces the old one only on the third read after the
	// refresh click.
	pending, reads := false, 0
	page.onClick = func(sel string) {
		if sel == "#refresh" {
			pending, reads = true, 0
		}
	}
	page.onHTML = func(sel string) {
		if !pending || sel != "#captcha" {
			return
		}
		reads++
		if reads == 3 {
			page.html[sel] = `<img src="/captcha?n=2">`
			pending = false
		}
	}
	cfg := testLogin
	cfg.CaptchaRefreshSelector = "#refresh"
	cfg.WaitTimeout = 5 * time.Second

	err := Login(context.Background(), page, scriptedSolver(3, "??", "4 + 4"), cfg, testCreds)
	require.NoError(t, err)

	assert.Equal(t, "8", page.filled["#captcha-answer"])
	assert.Equal(t, []string{`<img src="/captcha?n=1">`, `<img src="/captcha?n=2">`}, page.shotHTML)
}

func TestLoginCapturesUnchangedCaptchaAfterWait(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" }
	page.html["#captcha"] = `<img src="/captcha">`
	cfg := testLogin
	cfg.CaptchaRefreshSelector = "#refresh"

	err := Login(context.Background(), page, scriptedSolver(3, "??", "2 + 4"), cfg, testCreds)
	require.NoError(t, err)

	assert.Equal(t, 2, page.screenshots)
	assert.Equal(t, "6", page.filled["#captcha-answer"])
}

func TestLoginReloadsFormWithoutRefreshSelector(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" }

	err := Login(context.Background(), page, scriptedSolver(3, "??", "2 + 2"), testLogin, testCreds)
	require.NoError(t, err)

	navigations := 0
	for _, c := range page.calls {
		if c == "navigate "+testLogin.URL {
			navigations++
		}
	}
	assert.Equal(t, 2, navigations)
	assert.Equal(t, "4", page.filled["#captcha-answer"])
}

func TestLoginUndetermined(t *testing.T) {
	page := newFakePage()
	page.submit = testLogin.SubmitSelector
	page.visible = func(sel string) bool { return sel != "#error" && sel != "#dashboard" }
	cfg := testLogin
	cfg.MaxAttempts = 1

	err := Login(context.Background(), page, scriptedSolver(1, "1 + 2"), cfg, testCreds)
	assert.ErrorIs(t, err, ErrLoginUndetermined)
}

func TestLoginCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := newFakePage()
	err := Login(ctx, page, scriptedSolver(1, "1 + 2"), testLogin, testCreds)
	assert.ErrorIs(t, err, captcha.ErrCancelled)
	assert.Empty(t, page.calls)
}

func TestLoginMissingForm(t *testing.T) {
	page := newFakePage()
	page.visible = func(sel string) bool { return sel != "#pin" }
	cfg := testLogin
	cfg.MaxAttempts = 1

	err := Login(context.Background(), page, scriptedSolver(1, "1 + 2"), cfg, testCreds)
	assert.ErrorIs(t, err, ErrElementNotFound)
}
