// Package afterglow holds naming rules for files the dashboard generates.
package afterglow

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type FileType string

const (
	Visual FileType = "Visual"
	Script FileType = "Script"
	Audio  FileType = "Audio"
)

const maxTitleLen = 30

var (
	unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	titleSpaces      = regexp.MustCompile(`\s+`)
)

// SafeTitle keeps letters, digits and whitespace, joins words with "_" and
// cuts the result to 30 bytes. Titles with nothing left become "Untitled".
func SafeTitle(title string) string {
	s := unsafeTitleChars.ReplaceAllString(title, "")
	s = titleSpaces.ReplaceAllString(strings.TrimSpace(s), "_")
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	if s == "" {
		return "Untitled"
	}
	return s
}

// FileName is AfterGlow_<Type>_<SafeTitle>_<YYYYMMDD_HHMM>.<ext>, with the
// timestamp in now's location.
func FileName(title string, kind FileType, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("AfterGlow_%s_%s_%s.%s", kind, SafeTitle(title), now.Format("20060102_1504"), ext)
}
