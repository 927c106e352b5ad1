package captcha

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/poku-e/portalreports/internal/ocr"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = time.Second
)

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeParseFailure        Outcome = "parse_failure"
	OutcomeUnsupportedOperator Outcome = "unsupported_operator"
	// OutcomeCaptureFailure covers the image provider or OCR engine failing;
	// it is retried like a parse failure.
	OutcomeCaptureFailure Outcome = "capture_failure"
	OutcomeCancelled      Outcome = "cancelled"
)

// Attempt records one capture+recognize pass. Result is non-nil iff Outcome
// is OutcomeSuccess.
type Attempt struct {
	Number   int
	RawText  string
	Numbers  []int
	Operator Operator
	Result   *int
	Outcome  Outcome
	Err      error
}

// ImageProvider returns a freshly captured captcha image on every call.
type ImageProvider func(ctx context.Context) ([]byte, error)

// RetryFunc is notified about each failed attempt that will be retried.
type RetryFunc func(Attempt)

// Solver recognizes arithmetic captchas through an injected OCR engine.
type Solver struct {
	engine        ocr.Engine
	inputOptions  []ocr.InputOption
	maxAttempts   int
	backoff       time.Duration
	allowMultiply bool
	sleep         func(ctx context.Context, d time.Duration) error
	log           zerolog.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithMaxAttempts bounds SolveWithRetry. Values < 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Solver) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the fixed delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(s *Solver) { s.backoff = d }
}

// WithMultiplication enables *, x and × as operators.
func WithMultiplication(enabled bool) Option {
	return func(s *Solver) { s.allowMultiply = enabled }
}

// WithInputOptions forwards options to every OCR input.
func WithInputOptions(opts ...ocr.InputOption) Option {
	return func(s *Solver) { s.inputOptions = append(s.inputOptions, opts...) }
}

// WithLogger sets the logger used for attempt tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Solver) { s.sleep = fn }
}

// NewSolver builds a solver around engine.
func NewSolver(engine ocr.Engine, opts ...Option) *Solver {
	s := &Solver{
		engine:      engine,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts reports the configured attempt bound.
func (s *Solver) MaxAttempts() int { return s.maxAttempts }

// Solve recognizes one image and computes its answer. The returned Attempt is
// populated even on failure.
func (s *Solver) Solve(ctx context.Context, image []byte) (Attempt, error) {
	return s.solve(ctx, 1, image)
}

func (s *Solver) solve(ctx context.Context, number int, image []byte) (Attempt, error) {
	a := Attempt{Number: number}
	in := ocr.NewInput(fmt.Sprintf("captcha-%d", number), image, s.inputOptions...)

	res, err := s.engine.Recognize(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			a.Outcome, a.Err = OutcomeCancelled, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			return a, a.Err
		}
		a.Outcome, a.Err = OutcomeCaptureFailure, fmt.Errorf("ocr %s: %w", s.engine.Name(), err)
		return a, a.Err
	}
	a.RawText = res.PlainText

	expr, err := Parse(res.PlainText, s.allowMultiply)
	if err != nil {
		a.Err = err
		if errors.Is(err, ErrUnsupportedOperator) {
			a.Outcome = OutcomeUnsupportedOperator
			// Both operands were found; keep them for diagnostics.
			a.Numbers = leadingNumbers(res.PlainText)
		} else {
			a.Outcome = OutcomeParseFailure
		}
		return a, err
	}

	result := expr.Eval()
	a.Numbers = []int{expr.Left, expr.Right}
	a.Operator = expr.Operator
	a.Result = &result
	a.Outcome = OutcomeSuccess
	return a, nil
}

// SolveWithRetry repeats capture and recognition until an answer is computed
// or the attempt bound is reached. Attempts are strictly sequential.
func (s *Solver) SolveWithRetry(ctx context.Context, provider ImageProvider, onRetry RetryFunc) (int, error) {
	var last error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		log := s.log.With().Int("attempt", attempt).Int("max_attempts", s.maxAttempts).Logger()

		log.Debug().Str("state", "capturing").Msg("capturing captcha")
		a := Attempt{Number: attempt}
		image, err := provider(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			a.Outcome, a.Err = OutcomeCaptureFailure, fmt.Errorf("capture captcha: %w", err)
		} else {
			log.Debug().Str("state", "recognizing").Int("bytes", len(image)).Msg("recognizing captcha")
			a, err = s.solve(ctx, attempt, image)
			if a.Outcome == OutcomeCancelled {
				return 0, err
			}
		}

		if a.Outcome == OutcomeSuccess {
			log.Info().
				Str("state", "done").
				Str("text", a.RawText).
				Int("answer", *a.Result).
				Msg("captcha solved")
			return *a.Result, nil
		}

		last = a.Err
		log.Warn().
			Str("state", "failed").
			Str("outcome", string(a.Outcome)).
			Str("text", a.RawText).
			Err(a.Err).
			Msg("captcha attempt failed")

		if attempt == s.maxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(a)
		}
		if err := s.sleep(ctx, s.backoff); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}

	s.log.Error().Int("attempts", s.maxAttempts).Err(last).Msg("captcha attempts exhausted")
	return 0, &ExhaustedError{Attempts: s.maxAttempts, Last: last}
}

func leadingNumbers(text string) []int {
	var out []int
	for _, tok := range digitsRe.FindAllString(text, 2) {
		if n, err := strconv.Atoi(tok); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
