package main

import (
	"github.com/poku-e/portalreports/internal/captcha"
	"github.com/poku-e/portalreports/internal/config"
	"github.com/poku-e/portalreports/internal/ocr"
	"github.com/poku-e/portalreports/internal/ocr/tesseract"
	"github.com/rs/zerolog"
)

func newSolver(c config.Captcha, log zerolog.Logger) *captcha.Solver {
	var engine ocr.Engine = tesseract.New()
	if c.Preprocess {
		engine = &ocr.PreprocessingEngine{Next: engine, Options: c.PreprocessOptions()}
	}
	return captcha.NewSolver(engine, c.SolverOptions(log.With().Str("component", "captcha").Logger())...)
}
