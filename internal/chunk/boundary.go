package chunk

import (
	"regexp"
	"strings"
)

// boundaryPatterns match declaration starts across the languages we index.
// Patterns are applied to the line with leading whitespace stripped, so
// nested declarations (methods, inner functions) count as boundaries too.
var boundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(def |async def )\w+`),
	regexp.MustCompile(`^class \w+`),
	regexp.MustCompile(`^(func |@\w+ func )\w+`),
	regexp.MustCompile(`^(function |const \w+ = )`),
	regexp.MustCompile(`^(export |import )`),
}

// DefaultBoundary reports whether a line looks like the start of a
// function, class, or module-level declaration.
func DefaultBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, re := range boundaryPatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}
