package testutil

import (
	"regexp"
	"strings"
)

var (
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[^\s]*`)
	clockTimeRe    = regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}\b`)
	uuidRe         = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	ansiRe         = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// Normalize normalizes output for comparison.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ScrubTimestamps replaces ISO and clock timestamps.
func ScrubTimestamps(s string) string {
	s = isoTimestampRe.ReplaceAllString(s, "[TIMESTAMP]")
	return clockTimeRe.ReplaceAllString(s, "[TIMESTAMP]")
}

// ScrubUUIDs replaces run ids.
func ScrubUUIDs(s string) string {
	return uuidRe.ReplaceAllString(s, "[UUID]")
}

// ScrubPaths replaces basePath with a placeholder.
func ScrubPaths(s, basePath string) string {
	return strings.ReplaceAll(s, basePath, "[WORKDIR]")
}

// StripANSI removes terminal color sequences.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// ScrubAll applies every scrubber and normalizes.
func ScrubAll(s, basePath string) string {
	s = StripANSI(s)
	s = ScrubPaths(s, basePath)
	s = ScrubUUIDs(s)
	s = ScrubTimestamps(s)
	return Normalize(s)
}
