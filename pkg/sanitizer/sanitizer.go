package sanitizer

import (
	"regexp"
	"strings"
)

const (
	MaxTitleLength = 120
	MaxBodyLength  = 1000
	MaxTypeLength  = 64
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reEventTypeInvalid = regexp.MustCompile(`[^a-z0-9._-]+`)
	reRepeatedDots     = regexp.MustCompile(`\.{2,}`)
)

// SanitizeTitle keeps a single line of at most MaxTitleLength runes.
func SanitizeTitle(input string) string {
	return Pipeline{
		StripControl,
		TrimAndNormalize,
		func(s string) string { return Truncate(s, MaxTitleLength) },
	}.Apply(input)
}

// SanitizeBody keeps line breaks but drops other control characters and
// trailing spaces on each line.
func SanitizeBody(input string) string {
	return Pipeline{
		StripControl,
		normalizeLines,
		func(s string) string { return Truncate(s, MaxBodyLength) },
	}.Apply(input)
}

// SanitizeEventType lowercases and keeps [a-z0-9._-], so "Booking Reminder"
// becomes "booking_reminder".
func SanitizeEventType(input string) string {
	return Pipeline{
		func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
		func(s string) string { return reEventTypeInvalid.ReplaceAllString(s, "_") },
		func(s string) string { return reRepeatedDots.ReplaceAllString(s, ".") },
		func(s string) string { return cut(s, MaxTypeLength) },
		func(s string) string { return strings.Trim(s, "._-") },
	}.Apply(input)
}

// SanitizeID trims whitespace and control characters from an identifier.
func SanitizeID(input string) string {
	return strings.TrimSpace(StripControl(input))
}

func cut(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func normalizeLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		out = append(out, TrimAndNormalize(l))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
