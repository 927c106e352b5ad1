package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poku-e/portalreports/internal/htmltable"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/rs/zerolog"
)

// ActionKind names a page interaction run before a table is read.
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionFill  ActionKind = "fill"
	ActionWait  ActionKind = "wait"
	// ActionConfirmDialog clicks Selector and accepts the JavaScript dialog
	// it opens.
	ActionConfirmDialog ActionKind = "confirm_dialog"
)

// Action is one configured interaction.
type Action struct {
	Kind     ActionKind
	Selector string
	Value    string
	// Timeout bounds waits and dialog confirmation; zero uses the step's
	// WaitTimeout.
	Timeout time.Duration
}

// TableStep extracts one report table from the portal.
type TableStep struct {
	Report string
	URL    string
	// Table selects the table, or an element containing it.
	Table string
	// Empty, when set, marks the portal's "no records" message. Seeing it
	// instead of the table yields zero rows rather than an error.
	Empty   string
	Cols    []string
	Actions []Action

	WaitTimeout time.Duration
	Page        Page
	Log         zerolog.Logger
}

func (s *TableStep) Name() string      { return s.Report }
func (s *TableStep) Columns() []string { return s.Cols }

func (s *TableStep) wait() time.Duration {
	if s.WaitTimeout <= 0 {
		return DefaultWaitTimeout
	}
	return s.WaitTimeout
}

// Extract navigates to the report, performs its actions and reads the table.
// A table that never appears yields ErrExtractionEmpty.
func (s *TableStep) Extract(ctx context.Context) ([]report.Row, error) {
	log := s.Log.With().Str("report", s.Report).Logger()
	if s.URL != "" {
		if err := s.Page.Navigate(ctx, s.URL); err != nil {
			return nil, err
		}
	}
	for i, a := range s.Actions {
		if err := s.run(ctx, a); err != nil {
			return nil, fmt.Errorf("action %d (%s %s): %w", i+1, a.Kind, a.Selector, err)
		}
	}

	found, err := s.Page.WaitFor(ctx, s.Table, s.wait())
	if err != nil {
		return nil, err
	}
	if !found {
		if s.Empty != "" {
			empty, err := s.Page.WaitFor(ctx, s.Empty, DefaultQuickTimeout)
			if err != nil {
				return nil, err
			}
			if empty {
				log.Info().Msg("portal reports no records")
				return nil, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrExtractionEmpty, s.Table)
	}

	html, err := s.Page.HTML(ctx, s.Table)
	if err != nil {
		return nil, err
	}
	grid, err := htmltable.ParseHTML(html, "table")
	if errors.Is(err, htmltable.ErrTableNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExtractionEmpty, s.Table)
	}
	if err != nil {
		return nil, err
	}
	rows := report.FromGrid(grid.Header, grid.Rows, s.Cols)
	log.Debug().Int("rows", len(rows)).Strs("header", grid.Header).Msg("table extracted")
	return rows, nil
}

func (s *TableStep) run(ctx context.Context, a Action) error {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = s.wait()
	}
	switch a.Kind {
	case ActionClick:
		return s.Page.Click(ctx, a.Selector)
	case ActionFill:
		return s.Page.Fill(ctx, a.Selector, a.Value)
	case ActionWait:
		return requireVisible(ctx, s.Page, a.Selector, timeout)
	case ActionConfirmDialog:
		dctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		pending := s.Page.ExpectDialog(dctx, true)
		if err := s.Page.Click(ctx, a.Selector); err != nil {
			return err
		}
		msg, err := pending.Wait(dctx)
		if err != nil {
			return fmt.Errorf("confirm dialog: %w", err)
		}
		s.Log.Debug().Str("report", s.Report).Str("dialog", msg).Msg("dialog accepted")
		return nil
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}
