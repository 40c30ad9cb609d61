// Package normalizers tidies the multi-line help text written inline in
// command definitions.
package normalizers

import (
	"strings"
)

const Indentation = `  `

// LongDesc removes the indentation shared by every non-blank line and trims
// surrounding blank lines, so nested indentation survives.
func LongDesc(s string) string {
	return strings.Join(dedent(s), "\n")
}

// Examples dedents s like LongDesc and then indents every line once, the
// layout cobra expects for the Example field.
func Examples(s string) string {
	lines := dedent(s)
	if len(lines) == 0 {
		return ""
	}
	for i, line := range lines {
		if line != "" {
			lines[i] = Indentation + line
		}
	}
	return strings.Join(lines, "\n")
}

func dedent(s string) []string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}

	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimRight(line[prefix:], " \t")
	}
	return lines
}
