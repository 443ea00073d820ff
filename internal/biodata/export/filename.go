package export

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_]`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// Filename derives the download name. An explicit name wins; otherwise the
// sanitized record name is combined with the date, e.g.
// Raj_Kumar_Biodata_2024-01-15.pdf, or Biodata_2024-01-15.pdf without a name.
func Filename(name, explicit string, now time.Time) string {
	if explicit = strings.TrimSpace(filepath.Base(filepath.Clean("/" + explicit))); explicit != "" && explicit != "/" {
		if !strings.EqualFold(filepath.Ext(explicit), ".pdf") {
			explicit += ".pdf"
		}
		return explicit
	}

	date := now.UTC().Format("2006-01-02")
	if s := SanitizeName(name); s != "" {
		return s + "_Biodata_" + date + ".pdf"
	}
	return "Biodata_" + date + ".pdf"
}

// SanitizeName keeps letters, digits and single underscores
func SanitizeName(name string) string {
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
