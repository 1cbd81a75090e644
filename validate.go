package sitecheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// urlPattern accepts an http or https scheme, "//" (or an escaped "\\"
// run), then one or more characters from the URL character set. The class
// range "+-=" covers "+,-./0-9:;<=".
var urlPattern = regexp.MustCompile(`^https?:(//|\\\\)+[\w:#@%/;$()~?+-=\\.&]+$`)

// lineSplitter splits on LF and CRLF.
var lineSplitter = regexp.MustCompile(`\r?\n`)

// LineResult reports the validity of one input line.
type LineResult struct {
	// Index is the zero-based line number.
	Index int

	// Line is the line as supplied, without its line terminator.
	Line string

	// Valid reports whether the line matched the URL pattern.
	Valid bool
}

// ValidationResult is the outcome of validating a URL list.
type ValidationResult struct {
	// Valid is true only when there was input and every line matched.
	Valid bool

	// Lines holds per-line results in input order. It is empty when the
	// input as a whole was empty.
	Lines []LineResult
}

// Invalid returns the lines that failed validation.
func (r ValidationResult) Invalid() []LineResult {
	var out []LineResult
	for _, l := range r.Lines {
		if !l.Valid {
			out = append(out, l)
		}
	}
	return out
}

// URLs returns the text of every line, trimmed. Only meaningful when Valid is true.
func (r ValidationResult) URLs() []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, strings.TrimSpace(l.Line))
	}
	return out
}

// Err returns nil for a valid result, otherwise an error wrapping
// [ErrInvalidInput] naming the 1-based numbers of the flagged lines.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: url list is empty", ErrInvalidInput)
	}

	invalid := r.Invalid()
	nums := make([]string, len(invalid))
	for i, l := range invalid {
		nums[i] = strconv.Itoa(l.Index + 1)
	}
	return fmt.Errorf("%w: malformed url on line %s", ErrInvalidInput, strings.Join(nums, ", "))
}

// Validate checks each line against the URL pattern.
//
// A line is valid when, ignoring surrounding blanks, it consists entirely of
// a URL matching the pattern; a URL with other text around it, such as
// "see http://example.com", is invalid. A nil or empty slice is invalid as a whole and
// carries no per-line detail. Validate does not normalise or deduplicate.
func Validate(lines []string) ValidationResult {
	if len(lines) == 0 {
		return ValidationResult{}
	}

	res := ValidationResult{
		Valid: true,
		Lines: make([]LineResult, len(lines)),
	}
	for i, line := range lines {
		ok := urlPattern.MatchString(strings.TrimSpace(line))
		res.Lines[i] = LineResult{Index: i, Line: line, Valid: ok}
		res.Valid = res.Valid && ok
	}
	return res
}

// ValidateText splits raw text into lines (LF or CRLF) and validates them.
//
// Trailing whitespace of the whole text is ignored, so a final newline does
// not produce an empty line, and line indexes match the caller's text. Text
// that is empty or only whitespace is invalid as a whole with no per-line
// detail. Blank lines before or between URLs are flagged as invalid.
func ValidateText(text string) ValidationResult {
	if strings.TrimSpace(text) == "" {
		return ValidationResult{}
	}
	return Validate(lineSplitter.Split(strings.TrimRight(text, " \t\r\n"), -1))
}
