// Package runner executes one company's report run: login, extraction of
// every configured report into the consolidated workbook, and a save.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poku-e/portalreports/internal/portal"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/rs/zerolog"
)

const (
	ReasonCancelled   = "cancelled"
	ReasonLoginFailed = "login failed"
	ReasonAborted     = "run aborted"
)

// Step produces the rows of one report.
type Step interface {
	Name() string
	Columns() []string
	Extract(ctx context.Context) ([]report.Row, error)
}

// Workbook is the aggregator a run writes into.
type Workbook interface {
	AddReportSheet(name string, columns []string, rows []report.Row) (string, error)
	AddPlaceholderSheet(name string, columns []string, message string) (string, error)
	Save() (report.SaveResult, error)
}

// Job is the work for one company.
type Job struct {
	Identity report.Identity
	// Login signs in before the steps run; nil skips it.
	Login func(ctx context.Context) error
	Steps []Step
}

// Failure names a report without data and why.
type Failure struct {
	Report string `json:"report"`
	Reason string `json:"reason"`
}

// Outcome summarises a company run. Run never returns a bare error; any
// terminal failure is recorded in Error.
type Outcome struct {
	RunID        string    `json:"run_id"`
	Company      string    `json:"company"`
	TaxID        string    `json:"tax_id"`
	Succeeded    []string  `json:"succeeded"`
	Failed       []Failure `json:"failed"`
	WorkbookPath string    `json:"workbook_path,omitempty"`
	SheetNames   []string  `json:"sheet_names,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// OK reports a run where every report succeeded and the workbook was saved.
func (o Outcome) OK() bool {
	return o.Error == "" && len(o.Failed) == 0
}

// Runner executes jobs sequentially.
type Runner struct {
	log        zerolog.Logger
	clock      func() time.Time
	newID      func() string
	checkpoint bool
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithCheckpoint saves the workbook after every sheet.
func WithCheckpoint(enabled bool) Option {
	return func(r *Runner) { r.checkpoint = enabled }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		log:   zerolog.Nop(),
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run logs in, extracts every step into wb and saves it. A failed login
// records every report as failed and leaves the workbook file untouched.
// Extraction errors become placeholder sheets. A sheet that cannot be laid
// out fails only its report; a workbook I/O error ends the run.
// Cancellation records the remaining reports as cancelled and still saves
// what was gathered.
func (r *Runner) Run(ctx context.Context, job Job, wb Workbook) Outcome {
	out := Outcome{
		RunID:     r.newID(),
		Company:   job.Identity.Name,
		TaxID:     job.Identity.TaxID,
		Succeeded: []string{},
		Failed:    []Failure{},
		StartedAt: r.clock(),
	}
	log := r.log.With().Str("run_id", out.RunID).Str("company", out.Company).Logger()
	finish := func() Outcome {
		out.FinishedAt = r.clock()
		level := zerolog.InfoLevel
		if !out.OK() {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Int("succeeded", len(out.Succeeded)).
			Int("failed", len(out.Failed)).
			Str("workbook", out.WorkbookPath).
			Str("error", out.Error).
			Msg("company run finished")
		return out
	}
	failRest := func(steps []Step, reason string) {
		for _, s := range steps {
			out.Failed = append(out.Failed, Failure{Report: s.Name(), Reason: reason})
		}
	}

	if job.Login != nil {
		if err := job.Login(ctx); err != nil {
			reason := ReasonLoginFailed
			if ctx.Err() != nil {
				reason = ReasonCancelled
			}
			out.Error = fmt.Sprintf("login: %v", err)
			failRest(job.Steps, reason)
			return finish()
		}
	}

	for i, step := range job.Steps {
		if ctx.Err() != nil {
			log.Warn().Msg("run cancelled")
			failRest(job.Steps[i:], ReasonCancelled)
			break
		}
		rlog := log.With().Str("report", step.Name()).Logger()
		rlog.Info().Msg("extracting report")

		rows, err := step.Extract(ctx)
		if err != nil && ctx.Err() != nil {
			rlog.Warn().Err(err).Msg("extraction interrupted")
			failRest(job.Steps[i:], ReasonCancelled)
			break
		}

		var (
			werr    error
			failure *Failure
		)
		if err != nil {
			rlog.Warn().Err(err).Msg("extraction failed, writing placeholder sheet")
			failure = &Failure{Report: step.Name(), Reason: err.Error()}
			_, werr = wb.AddPlaceholderSheet(step.Name(), step.Columns(), placeholderMessage(err))
		} else {
			_, werr = wb.AddReportSheet(step.Name(), step.Columns(), rows)
		}
		var ioErr *report.IOError
		if werr != nil && !errors.As(werr, &ioErr) {
			rlog.Warn().Err(werr).Msg("sheet not written")
			if failure == nil {
				failure = &Failure{Report: step.Name(), Reason: werr.Error()}
			}
			out.Failed = append(out.Failed, *failure)
			continue
		}
		if werr == nil && r.checkpoint {
			_, werr = wb.Save()
		}
		if werr != nil {
			rlog.Error().Err(werr).Msg("workbook error, aborting company")
			out.Error = werr.Error()
			if failure == nil {
				failure = &Failure{Report: step.Name(), Reason: werr.Error()}
			}
			out.Failed = append(out.Failed, *failure)
			failRest(job.Steps[i+1:], ReasonAborted)
			return finish()
		}

		if failure != nil {
			out.Failed = append(out.Failed, *failure)
		} else {
			out.Succeeded = append(out.Succeeded, step.Name())
			rlog.Info().Int("rows", len(rows)).Msg("report written")
		}
	}

	res, err := wb.Save()
	if err != nil {
		out.Error = err.Error()
		return finish()
	}
	out.WorkbookPath = res.Path
	out.SheetNames = res.SheetNames
	return finish()
}

// Fail records a job that could not start, for example because its workbook
// could not be opened, with every report failed for reason. A cancelled
// context fails each report as ReasonCancelled.
func (r *Runner) Fail(job Job, reason error) Outcome {
	now := r.clock()
	out := Outcome{
		RunID:      r.newID(),
		Company:    job.Identity.Name,
		TaxID:      job.Identity.TaxID,
		Succeeded:  []string{},
		Failed:     make([]Failure, 0, len(job.Steps)),
		Error:      reason.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
	perReport := reason.Error()
	if errors.Is(reason, context.Canceled) || errors.Is(reason, context.DeadlineExceeded) {
		perReport = ReasonCancelled
	}
	for _, s := range job.Steps {
		out.Failed = append(out.Failed, Failure{Report: s.Name(), Reason: perReport})
	}
	r.log.Error().Str("run_id", out.RunID).Str("company", out.Company).Err(reason).Msg("company run not started")
	return out
}

func placeholderMessage(err error) string {
	if errors.Is(err, portal.ErrExtractionEmpty) {
		return report.DefaultPlaceholder
	}
	return "Extraction failed: " + err.Error()
}
