// Command portalreports logs into the tax portal for each configured company,
// solves the arithmetic CAPTCHA, and consolidates report tables into one
// workbook per company.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	logLevel  string
	logFormat string
	log       zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "portalreports",
		Short:         "Consolidate tax portal reports into one workbook per company",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(a.logLevel, a.logFormat)
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "Log format: console or json")

	root.AddCommand(newRunCmd(a), newCaptchaCmd(a), newImportCmd(a))
	return root
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	var l zerolog.Logger
	switch format {
	case "json":
		l = zerolog.New(os.Stderr)
	case "console":
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid --log-format %q (must be console or json)", format)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

func fatal(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
