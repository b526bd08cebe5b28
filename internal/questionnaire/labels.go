package questionnaire

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	labelPattern   = regexp.MustCompile(`^(SQ|Q)0*(\d+)$`)
	mentionPattern = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])(SQ|Q)[ \t]?(\d+)`)
)

// ParseLabel parses a label such as "Q3", "sq 2" or "Q03".
func ParseLabel(label string) (Section, int, bool) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(label), ""))
	m := labelPattern.FindStringSubmatch(normalized)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return Section(m[1]), n, true
}

// NormalizeLabel returns the canonical form of a label, or "" if it is not one.
func NormalizeLabel(label string) string {
	section, n, ok := ParseLabel(label)
	if !ok {
		return ""
	}
	return string(section) + strconv.Itoa(n)
}

// MentionedLabels returns the distinct item labels written in free text, in
// order of first mention.
func MentionedLabels(text string) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		label := NormalizeLabel(m[1] + m[2])
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// SplitTargets splits a target reference such as "Q3, Q5" into labels.
// Returns nil when any part is not a label.
func SplitTargets(target string) []string {
	parts := strings.FieldsFunc(target, func(r rune) bool {
		return r == ',' || r == '/' || r == '、' || r == ';'
	})
	var labels []string
	for _, p := range parts {
		label := NormalizeLabel(p)
		if label == "" {
			return nil
		}
		labels = append(labels, label)
	}
	return labels
}
