package draft

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	inlineSpaceRun  = regexp.MustCompile(`[ \t]+`)
	paragraphBreaks = regexp.MustCompile(`\n{3,}`)
	htmlTag         = regexp.MustCompile(`<[^>]+>`)
	codeFence       = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*$")
	labelPrefix     = regexp.MustCompile(`(?i)^(comment|reply|draft)\s*:\s*`)

	// suspiciousPatterns are phrases associated with prompt injection or
	// with breaking out of the prompt's tagged sections.
	suspiciousPatterns = []string{
		"ignore previous instructions",
		"ignore all previous",
		"disregard previous",
		"forget all previous",
		"new instructions:",
		"system:",
		"<post>",
		"</post>",
		"<author>",
		"</author>",
		"<content>",
		"</content>",
		"<guidelines>",
		"</guidelines>",
	}
)

// SanitizeLine reduces s to a single line of printable text.
func SanitizeLine(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = removeControlCharacters(s, false)
	return strings.TrimSpace(s)
}

// SanitizeContent removes control and non-printable characters from post
// text while keeping paragraph breaks.
func SanitizeContent(s string) string {
	s = strings.TrimSpace(s)
	s = removeControlCharacters(s, true)
	s = removeNonPrintable(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpaceRun.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = paragraphBreaks.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// CleanDraft turns raw model output into plain comment text: markup, code
// fences, a leading label and wrapping quotes are removed.
func CleanDraft(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = codeFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = labelPrefix.ReplaceAllString(s, "")

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return SanitizeContent(s)
}

// CheckSuspicious returns ErrSuspiciousContent when field looks like an
// attempt to steer the model.
func CheckSuspicious(field, value string) error {
	lower := strings.ToLower(value)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: %s contains %q", ErrSuspiciousContent, field, pattern)
		}
	}
	if hasExcessiveControlCharacters(value) {
		return fmt.Errorf("%w: %s contains excessive control characters", ErrSuspiciousContent, field)
	}
	return nil
}

// removeControlCharacters drops control characters. With preserveFormatting
// newlines, tabs and carriage returns are kept.
func removeControlCharacters(s string, preserveFormatting bool) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			if preserveFormatting && (r == '\n' || r == '\t' || r == '\r') {
				result.WriteRune(r)
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

func removeNonPrintable(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// hasExcessiveControlCharacters reports whether s has more control
// characters, other than newlines and tabs, than max(5, len(s)/20).
func hasExcessiveControlCharacters(s string) bool {
	if s == "" {
		return false
	}
	control := 0
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			control++
		}
	}
	threshold := len(s) / 20
	if threshold < 5 {
		threshold = 5
	}
	return control > threshold
}
