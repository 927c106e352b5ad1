// Package report accumulates tabular extractions from independent report
// steps into one consolidated workbook per company, one sheet per report type.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultMinWidth    = 10
	DefaultMaxWidth    = 50
	DefaultPlaceholder = "No records found"
)

// SaveResult describes a persisted workbook.
type SaveResult struct {
	Path       string
	SheetNames []string
}

// Workbook is the consolidated workbook for one company run. It is not safe
// for concurrent use; sections are appended sequentially.
type Workbook struct {
	file     *excelize.File
	path     string
	identity Identity

	// pristine names the untouched default sheet of a new file, removed once a
	// report sheet exists.
	pristine string

	minWidth        float64
	maxWidth        float64
	numericKeywords []string
	placeholder     string
	clock           func() time.Time
	log             zerolog.Logger

	styles *styleSet
}

// Option configures a Workbook.
type Option func(*Workbook)

// WithClock injects the time source for the path date and title stamps.
func WithClock(clock func() time.Time) Option {
	return func(w *Workbook) { w.clock = clock }
}

// WithLogger sets the workbook logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Workbook) { w.log = l }
}

// WithColumnWidths sets the clamp bounds for fitted column widths.
func WithColumnWidths(min, max float64) Option {
	return func(w *Workbook) {
		if min > 0 {
			w.minWidth = min
		}
		if max >= w.minWidth {
			w.maxWidth = max
		}
	}
}

// WithNumericKeywords replaces the amount-column heuristic keywords.
func WithNumericKeywords(keywords ...string) Option {
	return func(w *Workbook) {
		if len(keywords) > 0 {
			w.numericKeywords = append([]string(nil), keywords...)
		}
	}
}

// WithPlaceholder sets the text written into sheets without rows.
func WithPlaceholder(text string) Option {
	return func(w *Workbook) {
		if text != "" {
			w.placeholder = text
		}
	}
}

// OpenOrCreate opens the company's workbook for today under base, loading an
// existing file so later runs add or replace sheets instead of starting over.
// A file that exists but cannot be read fails here, before anything could
// overwrite it.
func OpenOrCreate(identity Identity, base string, opts ...Option) (*Workbook, error) {
	w := &Workbook{
		identity:        identity,
		minWidth:        DefaultMinWidth,
		maxWidth:        DefaultMaxWidth,
		numericKeywords: DefaultNumericKeywords,
		placeholder:     DefaultPlaceholder,
		clock:           time.Now,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.path = WorkbookPath(base, identity, w.clock())
	log := w.log.With().Str("path", w.path).Logger()

	_, err := os.Stat(w.path)
	switch {
	case err == nil:
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, &IOError{Op: "open", Path: w.path, Err: err}
		}
		w.file = f
		log.Info().Strs("sheets", f.GetSheetList()).Msg("loaded existing workbook")
	case errors.Is(err, fs.ErrNotExist):
		w.file = excelize.NewFile()
		w.pristine = w.file.GetSheetList()[0]
		log.Debug().Msg("created new workbook")
	default:
		return nil, &IOError{Op: "open", Path: w.path, Err: err}
	}
	return w, nil
}

// Path is where Save writes the workbook.
func (w *Workbook) Path() string { return w.path }

// Identity returns the company the workbook belongs to.
func (w *Workbook) Identity() Identity { return w.identity }

// SheetNames lists the sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	if w.pristine != "" {
		var out []string
		for _, s := range w.file.GetSheetList() {
			if s != w.pristine {
				out = append(out, s)
			}
		}
		return out
	}
	return w.file.GetSheetList()
}

// AddReportSheet writes a report into its own sheet, replacing any sheet of
// the same sanitized name. Rows are written in input order; a report without
// rows still gets a sheet with a placeholder row. It returns the sheet name
// actually used.
func (w *Workbook) AddReportSheet(name string, columns []string, rows []Row) (string, error) {
	if len(rows) == 0 {
		return w.AddPlaceholderSheet(name, columns, w.placeholder)
	}
	return w.addSheet(name, columns, rows, "")
}

// AddPlaceholderSheet records a report that produced no data, keeping the
// workbook a complete artifact. message explains why.
func (w *Workbook) AddPlaceholderSheet(name string, columns []string, message string) (string, error) {
	if message == "" {
		message = w.placeholder
	}
	return w.addSheet(name, columns, nil, message)
}

func (w *Workbook) addSheet(name string, columns []string, rows []Row, placeholder string) (string, error) {
	if len(columns) == 0 {
		return "", ErrNoColumns
	}
	sheet := SanitizeSheetName(name)
	if err := w.resetSheet(sheet); err != nil {
		return "", &SheetError{Sheet: sheet, Err: err}
	}
	if err := w.layout(sheet, strings.TrimSpace(name), columns, rows, placeholder); err != nil {
		return "", &SheetError{Sheet: sheet, Err: err}
	}
	w.log.Info().
		Str("sheet", sheet).
		Int("rows", len(rows)).
		Bool("placeholder", placeholder != "").
		Msg("report sheet written")
	return sheet, nil
}

// resetSheet leaves an empty sheet named sheet. An existing sheet is removed
// and recreated; a temporary sheet is created first because excelize refuses
// to delete the only sheet of a workbook.
func (w *Workbook) resetSheet(sheet string) error {
	idx, err := w.file.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx >= 0 {
		const tmp = "~replacing~"
		if _, err := w.file.NewSheet(tmp); err != nil {
			return fmt.Errorf("create temporary sheet: %w", err)
		}
		existing := w.file.GetSheetName(idx)
		if err := w.file.DeleteSheet(existing); err != nil {
			return fmt.Errorf("delete sheet: %w", err)
		}
		if err := w.file.SetSheetName(tmp, sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		if strings.EqualFold(existing, w.pristine) {
			w.pristine = ""
		}
		return nil
	}

	if _, err := w.file.NewSheet(sheet); err != nil {
		return err
	}
	if w.pristine != "" {
		if err := w.file.DeleteSheet(w.pristine); err != nil {
			return fmt.Errorf("delete default sheet: %w", err)
		}
		w.pristine = ""
	}
	return nil
}

// Save writes the workbook to a temporary file beside the target and renames
// it into place, so a failed write never clobbers the previous file. It may be
// called more than once for checkpointing.
func (w *Workbook) Save() (SaveResult, error) {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SaveResult{}, &IOError{Op: "save", Path: w.path, Err: err}
	}

	if idx, err := w.file.GetSheetIndex(w.firstSheet()); err == nil && idx >= 0 {
		w.file.SetActiveSheet(idx)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return SaveResult{}, &IOError{Op: "save", Path: w.path, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) (SaveResult, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return SaveResult{}, &IOError{Op: "save", Path: w.path, Err: err}
	}

	if _, err := w.file.WriteTo(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return SaveResult{}, &IOError{Op: "save", Path: w.path, Err: err}
	}

	res := SaveResult{Path: w.path, SheetNames: w.SheetNames()}
	w.log.Info().Str("path", w.path).Strs("sheets", res.SheetNames).Msg("workbook saved")
	return res, nil
}

func (w *Workbook) firstSheet() string {
	names := w.SheetNames()
	if len(names) == 0 {
		return w.file.GetSheetList()[0]
	}
	return names[0]
}

// Close releases the underlying file's temporary resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}
