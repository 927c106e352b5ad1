package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/poku-e/portalreports/internal/runner"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func printSummary(w io.Writer, outcomes []runner.Outcome) {
	fmt.Fprintln(w)
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			failColor.Fprintf(w, "✗ %s (%s)\n", o.Company, o.TaxID)
			fmt.Fprintf(w, "    %s\n", o.Error)
		case len(o.Failed) > 0:
			warnColor.Fprintf(w, "! %s (%s)\n", o.Company, o.TaxID)
		default:
			okColor.Fprintf(w, "✓ %s (%s)\n", o.Company, o.TaxID)
		}
		for _, name := range o.Succeeded {
			fmt.Fprintf(w, "    %s %s\n", okColor.Sprint("ok"), name)
		}
		for _, f := range o.Failed {
			fmt.Fprintf(w, "    %s %s: %s\n", failColor.Sprint("failed"), f.Report, f.Reason)
		}
		if o.WorkbookPath != "" {
			dimColor.Fprintf(w, "    %s (%s)\n", o.WorkbookPath, o.FinishedAt.Sub(o.StartedAt).Round(time.Second))
		}
	}
}
