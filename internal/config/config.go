// Package config loads the YAML run configuration: output location,
// browser and CAPTCHA settings, login selectors, reports and companies.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	OutputDir string    `yaml:"output_dir"`
	EnvFile   string    `yaml:"env_file"`
	Browser   Browser   `yaml:"browser"`
	Captcha   Captcha   `yaml:"captcha"`
	Login     Login     `yaml:"login"`
	Workbook  Workbook  `yaml:"workbook"`
	Reports   []Report  `yaml:"reports"`
	Companies []Company `yaml:"companies"`
}

type Browser struct {
	Headless          bool          `yaml:"headless"`
	Bin               string        `yaml:"bin"`
	NoSandbox         bool          `yaml:"no_sandbox"`
	UserAgent         string        `yaml:"user_agent"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	ElementTimeout    time.Duration `yaml:"element_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

type Captcha struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Multiply    bool          `yaml:"multiply"`
	Languages   []string      `yaml:"languages"`
	PSM         int           `yaml:"psm"`
	Whitelist   string        `yaml:"whitelist"`
	Preprocess  bool          `yaml:"preprocess"`
	Scale       int           `yaml:"scale"`
}

type Login struct {
	URL                    string        `yaml:"url"`
	UsernameSelector       string        `yaml:"username_selector"`
	ContinueSelector       string        `yaml:"continue_selector"`
	PasswordSelector       string        `yaml:"password_selector"`
	CaptchaImageSelector   string        `yaml:"captcha_image_selector"`
	CaptchaInputSelector   string        `yaml:"captcha_input_selector"`
	CaptchaRefreshSelector string        `yaml:"captcha_refresh_selector"`
	SubmitSelector         string        `yaml:"submit_selector"`
	SuccessSelector        string        `yaml:"success_selector"`
	RejectionSelector      string        `yaml:"rejection_selector"`
	MaxAttempts            int           `yaml:"max_attempts"`
	WaitTimeout            time.Duration `yaml:"wait_timeout"`
	QuickTimeout           time.Duration `yaml:"quick_timeout"`
}

type Workbook struct {
	MinWidth        float64  `yaml:"min_width"`
	MaxWidth        float64  `yaml:"max_width"`
	NumericKeywords []string `yaml:"numeric_keywords"`
	Placeholder     string   `yaml:"placeholder"`
	Checkpoint      bool     `yaml:"checkpoint"`
}

// Report describes one portal report page and the table to read from it.
type Report struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Table   string        `yaml:"table"`
	Empty   string        `yaml:"empty"`
	Columns []string      `yaml:"columns"`
	Actions []Action      `yaml:"actions"`
	Wait    time.Duration `yaml:"wait"`
}

// Action is a click, fill, wait or confirm_dialog run before reading.
type Action struct {
	Type     string        `yaml:"type"`
	Selector string        `yaml:"selector"`
	Value    string        `yaml:"value"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Company is one taxpayer to run. The password is never stored in the file,
// only the name of the environment variable holding it.
type Company struct {
	Name        string   `yaml:"name"`
	TaxID       string   `yaml:"tax_id"`
	Username    string   `yaml:"username"`
	PasswordEnv string   `yaml:"password_env"`
	Reports     []string `yaml:"reports"`
}

// Default returns the configuration every file is layered over.
func Default() Config {
	return Config{
		OutputDir: "reports",
		Browser: Browser{
			Headless:          true,
			ViewportWidth:     1366,
			ViewportHeight:    900,
			ElementTimeout:    30 * time.Second,
			NavigationTimeout: 180 * time.Second,
		},
		Captcha: Captcha{
			MaxAttempts: 5,
			Backoff:     time.Second,
			Languages:   []string{"eng"},
			PSM:         7,
			Whitelist:   "0123456789+-*xX=?",
			Preprocess:  true,
			Scale:       3,
		},
		Login: Login{
			MaxAttempts:  3,
			WaitTimeout:  30 * time.Second,
			QuickTimeout: time.Second,
		},
		Workbook: Workbook{
			MinWidth:    10,
			MaxWidth:    50,
			Placeholder: "No records found",
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
