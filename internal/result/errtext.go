package result

import (
	"strings"
	"unicode"
)

// CutMarker is printed by the cutting tool after it writes machine code.
const CutMarker = "Estimated cutting time"

// ExtractErrors pulls the human-readable lines out of the tool's boxed
// error blocks. A block is the run of lines between two delimiter lines made
// only of asterisks (three or more). Asterisks framing a content line are
// stripped and lines without a letter are dropped. When the output holds no
// such block, the trimmed raw output is returned as a single line.
func ExtractErrors(output string) []string {
	var (
		out     []string
		inBlock bool
		block   []string
	)
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if isDelimiter(trimmed) {
			if inBlock {
				out = append(out, block...)
				block = nil
			}
			inBlock = !inBlock
			continue
		}
		if !inBlock {
			continue
		}
		text := strings.TrimSpace(strings.Trim(trimmed, "*"))
		if hasLetter(text) {
			block = append(block, text)
		}
	}
	if len(out) == 0 {
		raw := strings.TrimSpace(output)
		if raw == "" {
			return nil
		}
		return []string{raw}
	}
	return out
}

// CutTime returns the cutting tool's estimate line and whether it was found.
func CutTime(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if i := strings.Index(line, CutMarker); i >= 0 {
			return strings.TrimSpace(line[i:]), true
		}
	}
	return "", false
}

func isDelimiter(s string) bool {
	return len(s) >= 3 && strings.Trim(s, "*") == ""
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
