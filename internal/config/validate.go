package config

import (
	"errors"
	"fmt"
	"strings"
)

var validActions = map[string]bool{
	"click":          true,
	"fill":           true,
	"wait":           true,
	"confirm_dialog": true,
}

// Validate reports every problem in the configuration at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		add("output_dir is required")
	}
	if c.Captcha.MaxAttempts < 1 || c.Captcha.MaxAttempts > 10 {
		add("captcha.max_attempts must be between 1 and 10, got %d", c.Captcha.MaxAttempts)
	}
	if c.Captcha.Backoff < 0 {
		add("captcha.backoff must not be negative")
	}
	if c.Workbook.MinWidth <= 0 || c.Workbook.MaxWidth < c.Workbook.MinWidth {
		add("workbook widths must satisfy 0 < min_width <= max_width, got %v..%v", c.Workbook.MinWidth, c.Workbook.MaxWidth)
	}
	if c.Login.URL != "" {
		required := map[string]string{
			"username_selector":      c.Login.UsernameSelector,
			"password_selector":      c.Login.PasswordSelector,
			"captcha_image_selector": c.Login.CaptchaImageSelector,
			"captcha_input_selector": c.Login.CaptchaInputSelector,
			"submit_selector":        c.Login.SubmitSelector,
			"success_selector":       c.Login.SuccessSelector,
		}
		for _, key := range sortedKeys(required) {
			if strings.TrimSpace(required[key]) == "" {
				add("login.%s is required when login.url is set", key)
			}
		}
	}

	reports := make(map[string]bool, len(c.Reports))
	for i, r := range c.Reports {
		where := fmt.Sprintf("reports[%d]", i)
		if r.Name == "" {
			add("%s: name is required", where)
		} else if reports[r.Name] {
			add("%s: duplicate report %q", where, r.Name)
		}
		reports[r.Name] = true
		if r.Table == "" {
			add("%s (%s): table selector is required", where, r.Name)
		}
		if len(r.Columns) == 0 {
			add("%s (%s): columns are required", where, r.Name)
		}
		for j, a := range r.Actions {
			if !validActions[a.Type] {
				add("%s (%s): actions[%d]: unknown type %q", where, r.Name, j, a.Type)
			}
			if a.Selector == "" {
				add("%s (%s): actions[%d]: selector is required", where, r.Name, j)
			}
		}
	}

	companies := make(map[string]bool, len(c.Companies))
	for i, co := range c.Companies {
		where := fmt.Sprintf("companies[%d]", i)
		if co.Name == "" {
			add("%s: name is required", where)
		} else if companies[co.Name] {
			add("%s: duplicate company %q", where, co.Name)
		}
		companies[co.Name] = true
		if co.TaxID == "" {
			add("%s (%s): tax_id is required", where, co.Name)
		}
		if c.Login.URL != "" && (co.Username == "" || co.PasswordEnv == "") {
			add("%s (%s): username and password_env are required", where, co.Name)
		}
		for _, name := range co.Reports {
			if !reports[name] {
				add("%s (%s): unknown report %q", where, co.Name, name)
			}
		}
	}

	return errors.Join(errs...)
}
