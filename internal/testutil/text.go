package testutil

import "strings"

// Unindent strips the common leading whitespace of every non-blank line and
// surrounding blank lines, so fixtures can be written inline in tests.
func Unindent(s string) string {
	s = strings.TrimLeft(strings.TrimRight(s, " \t\n"), "\n")
	lines := strings.Split(s, "\n")

	var prefix string
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		n := 0
		for n < len(prefix) && n < len(indent) && prefix[n] == indent[n] {
			n++
		}
		prefix = prefix[:n]
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n") + "\n"
}
