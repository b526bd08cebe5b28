// Package ingestion loads reference questionnaires from disk into the
// retrieval corpus. It runs offline, outside the drafting session.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	innerSpace  = regexp.MustCompile(`[ \t\x{00A0}\x{3000}]+`)
	blankLines  = regexp.MustCompile(`\n\n\n+`)
	bulletMarks = []string{"- ", "* ", "• ", "· ", "○ ", "□ "}
)

// CleanText normalizes line endings and spacing while keeping the line
// structure of a questionnaire: headings, options and indentation survive.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\ufeff", "")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t\u00a0\u3000")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "#") {
		return innerSpace.ReplaceAllString(trimmed, " ")
	}

	indent := line[:len(line)-len(trimmed)]
	indent = strings.ReplaceAll(indent, "\t", "  ")
	if isBulletLine(trimmed) {
		return indent + trimmed[:bulletPrefixLen(trimmed)] + innerSpace.ReplaceAllString(trimmed[bulletPrefixLen(trimmed):], " ")
	}
	return indent + innerSpace.ReplaceAllString(trimmed, " ")
}

func isBulletLine(line string) bool {
	return bulletPrefixLen(line) > 0
}

func bulletPrefixLen(line string) int {
	for _, mark := range bulletMarks {
		if strings.HasPrefix(line, mark) {
			return len(mark)
		}
	}
	return 0
}
