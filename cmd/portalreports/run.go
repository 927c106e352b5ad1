package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/config"
	"github.com/poku-e/portalreports/internal/portal"
	"github.com/poku-e/portalreports/internal/report"
	"github.com/poku-e/portalreports/internal/runner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configPath string
	companies  []string
	outDir     string
	envFile    string
	headless   bool
	browserBin string
	checkpoint bool
}

func newRunCmd(a *app) *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log in for each company and build its consolidated workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if err := config.LoadEnv(cfg.EnvFile, o.envFile, ".env"); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("out") {
				cfg.OutputDir = o.outDir
			}
			if flags.Changed("headless") {
				cfg.Browser.Headless = o.headless
			}
			if flags.Changed("browser") {
				cfg.Browser.Bin = o.browserBin
			}
			if flags.Changed("checkpoint") {
				cfg.Workbook.Checkpoint = o.checkpoint
			}
			return runCompanies(cmd.Context(), cmd, cfg, o.companies, a.log)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "portalreports.yaml", "Configuration file")
	f.StringArrayVar(&o.companies, "company", nil, "Company to run (repeatable, default all)")
	f.StringVarP(&o.outDir, "out", "o", "", "Output directory (overrides output_dir)")
	f.StringVar(&o.envFile, "env-file", "", "Extra .env file with password variables")
	f.BoolVar(&o.headless, "headless", true, "Run the browser without a window")
	f.StringVar(&o.browserBin, "browser", "", "Chromium binary path")
	f.BoolVar(&o.checkpoint, "checkpoint", false, "Save the workbook after every report")
	return cmd
}

func runCompanies(ctx context.Context, cmd *cobra.Command, cfg config.Config, names []string, log zerolog.Logger) error {
	companies, err := cfg.SelectCompanies(names)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return fmt.Errorf("no companies configured")
	}

	browser, err := portal.Launch(ctx, cfg.Browser.Options(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("close browser")
		}
	}()

	solver := newSolver(cfg.Captcha, log)
	r := runner.New(runner.WithLogger(log), runner.WithCheckpoint(cfg.Workbook.Checkpoint))

	var outcomes []runner.Outcome
	for _, co := range companies {
		if ctx.Err() != nil {
			log.Warn().Str("company", co.Name).Msg("skipping company, run cancelled")
			outcomes = append(outcomes, skipCompany(ctx, cfg, co, r, log.With().Str("company", co.Name).Logger()))
			continue
		}
		out := runCompany(ctx, cfg, co, browser, solver, r, log.With().Str("company", co.Name).Logger())
		outcomes = append(outcomes, out)
	}

	printSummary(cmd.OutOrStdout(), outcomes)

	incomplete := 0
	for _, o := range outcomes {
		if o.Error != "" {
			incomplete++
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if incomplete > 0 {
		return fmt.Errorf("%d of %d companies did not complete", incomplete, len(outcomes))
	}
	return nil
}

func runCompany(ctx context.Context, cfg config.Config, co config.Company, browser *portal.Browser, solver *captcha.Solver, r *runner.Runner, log zerolog.Logger) runner.Outcome {
	creds, credErr := co.Credentials(os.LookupEnv)
	identity := co.Identity(creds)
	job := runner.Job{Identity: identity}

	page, err := browser.NewPage()
	if err != nil {
		job.Steps = placeholderSteps(cfg.ReportsFor(co))
		return record(r.Fail(job, err), cfg.OutputDir, identity, log)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug().Err(err).Msg("close page")
		}
	}()

	for _, rep := range cfg.ReportsFor(co) {
		job.Steps = append(job.Steps, rep.Step(page, log))
	}
	job.Login = func(ctx context.Context) error {
		if credErr != nil {
			return credErr
		}
		if cfg.Login.URL == "" {
			return nil
		}
		return portal.Login(ctx, page, solver, cfg.Login.Portal(log), creds)
	}

	wb, err := report.OpenOrCreate(identity, cfg.OutputDir, cfg.Workbook.Options(log)...)
	if err != nil {
		return record(r.Fail(job, err), cfg.OutputDir, identity, log)
	}
	defer wb.Close()

	return record(r.Run(ctx, job, wb), cfg.OutputDir, identity, log)
}

// skipCompany accounts for a company the cancelled run never started.
func skipCompany(ctx context.Context, cfg config.Config, co config.Company, r *runner.Runner, log zerolog.Logger) runner.Outcome {
	identity := co.Identity(report.Credentials{})
	job := runner.Job{Identity: identity, Steps: placeholderSteps(cfg.ReportsFor(co))}
	return record(r.Fail(job, ctx.Err()), cfg.OutputDir, identity, log)
}

// record writes the run summary beside the company's workbook.
func record(out runner.Outcome, outDir string, identity report.Identity, log zerolog.Logger) runner.Outcome {
	path := out.WorkbookPath
	if path == "" {
		path = report.WorkbookPath(outDir, identity, time.Now())
	}
	summary := runner.SummaryPath(path)
	if err := runner.WriteSummary(summary, out); err != nil {
		log.Error().Err(err).Msg("write run summary")
	} else {
		log.Debug().Str("path", summary).Msg("run summary written")
	}
	return out
}

// placeholderSteps names reports for failure accounting only.
func placeholderSteps(reports []config.Report) []runner.Step {
	steps := make([]runner.Step, 0, len(reports))
	for _, rep := range reports {
		steps = append(steps, rep.Step(nil, zerolog.Nop()))
	}
	return steps
}
