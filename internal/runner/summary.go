package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SummaryFile is written next to the company's workbook.
const SummaryFile = "run_summary.json"

// SummaryPath returns where the summary for a workbook at workbookPath goes.
func SummaryPath(workbookPath string) string {
	return filepath.Join(filepath.Dir(workbookPath), SummaryFile)
}

// WriteSummary persists outcome as indented JSON, replacing path atomically.
func WriteSummary(path string, outcome Outcome) error {
	b, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Outcome, error) {
	var o Outcome
	b, err := os.ReadFile(path)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(b, &o); err != nil {
		return o, fmt.Errorf("decode summary %s: %w", path, err)
	}
	return o, nil
}
