package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/joho/godotenv"
	"github.com/poku-e/portalreports/internal/report"
)

// ErrMissingSecret means a company's password variable is unset or empty.
var ErrMissingSecret = errors.New("password environment variable not set")

// ErrUnknownCompany means a requested company is not configured.
var ErrUnknownCompany = errors.New("unknown company")

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// Credentials resolves the company's login with lookup, normally
// os.LookupEnv.
func (co Company) Credentials(lookup func(string) (string, bool)) (report.Credentials, error) {
	creds := report.Credentials{Username: co.Username}
	if co.PasswordEnv == "" {
		return creds, nil
	}
	pw, ok := lookup(co.PasswordEnv)
	if !ok || pw == "" {
		return creds, fmt.Errorf("%w: %s (company %s)", ErrMissingSecret, co.PasswordEnv, co.Name)
	}
	creds.Password = pw
	return creds, nil
}

// Identity builds the workbook identity for the company.
func (co Company) Identity(creds report.Credentials) report.Identity {
	return report.Identity{Name: co.Name, TaxID: co.TaxID, Credentials: creds}
}

// Company looks a company up by name.
func (c Config) Company(name string) (Company, error) {
	for _, co := range c.Companies {
		if co.Name == name {
			return co, nil
		}
	}
	return Company{}, fmt.Errorf("%w: %q", ErrUnknownCompany, name)
}

// SelectCompanies returns the named companies in configuration order, or all
// of them when names is empty.
func (c Config) SelectCompanies(names []string) ([]Company, error) {
	if len(names) == 0 {
		return c.Companies, nil
	}
	for _, n := range names {
		if _, err := c.Company(n); err != nil {
			return nil, err
		}
	}
	var out []Company
	for _, co := range c.Companies {
		if slices.Contains(names, co.Name) {
			out = append(out, co)
		}
	}
	return out, nil
}

// Report looks a report up by name.
func (c Config) Report(name string) (Report, bool) {
	for _, r := range c.Reports {
		if r.Name == name {
			return r, true
		}
	}
	return Report{}, false
}

// ReportsFor lists the reports a company runs: its own subset when given,
// otherwise every configured report.
func (c Config) ReportsFor(co Company) []Report {
	if len(co.Reports) == 0 {
		return c.Reports
	}
	var out []Report
	for _, r := range c.Reports {
		if slices.Contains(co.Reports, r.Name) {
			out = append(out, r)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
