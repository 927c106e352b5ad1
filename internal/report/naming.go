package report

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

const (
	maxSheetNameLen  = 31
	fallbackSheet    = "Report"
	dateStampLayout  = "02012006"
	consolidatedPart = "CONSOLIDATED_REPORT"
)

var invalidSheetChars = strings.NewReplacer(
	`\`, "", "/", "", "*", "", "?", "", "[", "", "]", "", ":", "",
)

// SanitizeCompanyName turns a display name into an upper-case, underscore
// separated token safe for file and folder names.
func SanitizeCompanyName(name string) string {
	s := slug.Make(name)
	if s == "" {
		return "COMPANY"
	}
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

// SanitizeTaxID keeps letters and digits only, upper-cased.
func SanitizeTaxID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "UNKNOWN"
	}
	return b.String()
}

func companyStem(id Identity) string {
	return SanitizeCompanyName(id.Name) + "_" + SanitizeTaxID(id.TaxID)
}

// FolderName is "<NAME>_<TAXID>_<DDMMYYYY>".
func FolderName(id Identity, day time.Time) string {
	return companyStem(id) + "_" + day.Format(dateStampLayout)
}

// WorkbookPath returns the deterministic consolidated workbook location for a
// company on a given day, rooted at base.
func WorkbookPath(base string, id Identity, day time.Time) string {
	stamp := day.Format(dateStampLayout)
	file := companyStem(id) + "_" + consolidatedPart + "_" + stamp + ".xlsx"
	return filepath.Join(base, FolderName(id, day), file)
}

// SanitizeSheetName applies the xlsx sheet name rules: at most 31 characters,
// none of \ / * ? [ ] :, and no leading or trailing apostrophe.
func SanitizeSheetName(name string) string {
	s := invalidSheetChars.Replace(name)
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "'"))
	if utf8.RuneCountInString(s) > maxSheetNameLen {
		s = string([]rune(s)[:maxSheetNameLen])
		s = strings.TrimRight(s, " '")
	}
	if s == "" {
		return fallbackSheet
	}
	return s
}
