package report

import (
	"errors"
	"fmt"
)

// ErrNoColumns indicates a sheet was requested without a column set.
var ErrNoColumns = errors.New("report has no columns")

// IOError means the workbook file could not be read or written. It is
// terminal for the company's run.
type IOError struct {
	Op   string // "open", "save"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("workbook %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// SheetError wraps a failure while laying out a single sheet.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}
