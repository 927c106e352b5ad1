package main

import (
	"fmt"
	"os"

	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/config"
	"github.com/spf13/cobra"
)

func newCaptchaCmd(a *app) *cobra.Command {
	c := config.Default().Captcha
	cmd := &cobra.Command{
		Use:   "captcha IMAGE...",
		Short: "Solve arithmetic CAPTCHA images offline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			solver := newSolver(c, a.log)
			w := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				img, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				attempt, err := solver.Solve(cmd.Context(), img)
				if err != nil {
					failed++
					fmt.Fprintf(w, "%s: %s %q (%s)\n", path, failColor.Sprint(string(attempt.Outcome)), attempt.RawText, err)
					continue
				}
				fmt.Fprintf(w, "%s: %d %s %d = %s\n", path,
					attempt.Numbers[0], attempt.Operator, attempt.Numbers[1], okColor.Sprint(*attempt.Result))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images not solved", failed, len(args))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&c.Multiply, "multiply", c.Multiply, "Accept multiplication")
	f.IntVar(&c.PSM, "psm", c.PSM, "Tesseract page segmentation mode")
	f.StringSliceVar(&c.Languages, "lang", c.Languages, "Tesseract languages")
	f.BoolVar(&c.Preprocess, "preprocess", c.Preprocess, "Clean and upscale images before OCR")
	f.IntVar(&c.Scale, "scale", c.Scale, "Upscale factor for preprocessing")
	return cmd
}
