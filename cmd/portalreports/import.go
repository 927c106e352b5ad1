package main

import (
	"fmt"
	"os"
	"time"

	"github.com/poku-e/portalreports/internal/config"
	"github.com/poku-e/portalreports/internal/htmltable"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/spf13/cobra"
)

type importOptions struct {
	configPath string
	company    string
	report     string
	htmlFile   string
	url        string
	selector   string
	columns    []string
	outDir     string
}

func newImportCmd(a *app) *cobra.Command {
	var o importOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add a saved or served HTML report table to a company's workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (o.htmlFile == "") == (o.url == "") {
				return fmt.Errorf("exactly one of --html or --url is required")
			}
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.OutputDir = o.outDir
			}
			co, err := cfg.Company(o.company)
			if err != nil {
				return err
			}

			columns, selector := o.columns, o.selector
			if rep, ok := cfg.Report(o.report); ok {
				if len(columns) == 0 {
					columns = rep.Columns
				}
				if selector == "" {
					selector = rep.Table
				}
			}
			if len(columns) == 0 {
				return fmt.Errorf("report %q is not configured; pass --columns", o.report)
			}

			var grid htmltable.Grid
			if o.htmlFile != "" {
				f, err := os.Open(o.htmlFile)
				if err != nil {
					return err
				}
				defer f.Close()
				grid, err = htmltable.Parse(f, selector)
				if err != nil {
					return err
				}
			} else {
				fetcher := htmltable.NewFetcher(60*time.Second, a.log)
				grid, err = fetcher.FetchGrid(cmd.Context(), o.url, selector)
				if err != nil {
					return err
				}
			}
			rows := report.FromGrid(grid.Header, grid.Rows, columns)

			wb, err := report.OpenOrCreate(co.Identity(report.Credentials{}), cfg.OutputDir, cfg.Workbook.Options(a.log)...)
			if err != nil {
				return err
			}
			defer wb.Close()
			sheet, err := wb.AddReportSheet(o.report, columns, rows)
			if err != nil {
				return err
			}
			res, err := wb.Save()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d rows into sheet %q of %s\n", okColor.Sprint("imported"), len(rows), sheet, res.Path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "portalreports.yaml", "Configuration file")
	f.StringVar(&o.company, "company", "", "Company name as configured")
	f.StringVar(&o.report, "report", "", "Report (sheet) name")
	f.StringVar(&o.htmlFile, "html", "", "Saved HTML page")
	f.StringVar(&o.url, "url", "", "URL serving the report page")
	f.StringVar(&o.selector, "selector", "", "Table selector (default: the report's configured table)")
	f.StringSliceVar(&o.columns, "columns", nil, "Column names (default: the report's configured columns)")
	f.StringVarP(&o.outDir, "out", "o", "", "Output directory (overrides output_dir)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}
