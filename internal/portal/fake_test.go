package portal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakePage records interactions and answers visibility from a callback.
type fakePage struct {
	visible func(selector string) bool
	texts   map[string]string
	html    map[string]string
	submit  string

	onClick func(selector string)
	onHTML  func(selector string)

	filled      map[string]string
	calls       []string
	submits     int
	screenshots int
	shotHTML    []string
	armed       bool
	dialogs     int
}

func newFakePage() *fakePage {
	return &fakePage{
		texts:  map[string]string{},
		html:   map[string]string{},
		filled: map[string]string{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.calls = append(p.calls, "navigate "+url)
	return nil
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	p.calls = append(p.calls, "fill "+selector)
	p.filled[selector] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.calls = append(p.calls, "click "+selector)
	if selector == p.submit {
		p.submits++
	}
	if p.onClick != nil {
		p.onClick(selector)
	}
	if p.armed {
		p.armed = false
		p.dialogs++
	}
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, selector string) ([]byte, error) {
	p.screenshots++
	p.shotHTML = append(p.shotHTML, p.html[selector])
	p.calls = append(p.calls, "screenshot "+selector)
	return []byte(fmt.Sprintf("img-%d", p.screenshots)), nil
}

func (p *fakePage) WaitFor(ctx context.Context, selector string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.visible == nil {
		return true, nil
	}
	return p.visible(selector), nil
}

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	return p.texts[selector], nil
}

func (p *fakePage) HTML(_ context.Context, selector string) (string, error) {
	if p.onHTML != nil {
		p.onHTML(selector)
	}
	h, ok := p.html[selector]
	if !ok {
		return "", errors.New("no such element")
	}
	return h, nil
}

func (p *fakePage) ExpectDialog(context.Context, bool) PendingDialog {
	p.armed = true
	return fakeDialog{p}
}

type fakeDialog struct{ p *fakePage }

func (d fakeDialog) Wait(ctx context.Context) (string, error) {
	if d.p.dialogs == 0 {
		return "", context.DeadlineExceeded
	}
	return "Generate report?", nil
}
