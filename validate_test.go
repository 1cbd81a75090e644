package sitecheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllValid(t *testing.T) {
	lines := []string{
		"http://example.com",
		"https://example.com/path?q=1&r=2#frag",
		"https://user@host.example:8443/a;b/c~d_(e)$f%20",
		"https://my-site.example,com/x",
		`http:\\\\intranet\share`,
	}

	res := Validate(lines)

	assert.True(t, res.Valid)
	require.Len(t, res.Lines, len(lines))
	assert.Empty(t, res.Invalid())
	assert.NoError(t, res.Err())
	for i, l := range res.Lines {
		assert.Equal(t, i, l.Index)
		assert.True(t, l.Valid, "line %d %q", i, l.Line)
	}
}

func TestValidate_FlagsExactlyInvalidLines(t *testing.T) {
	lines := []string{
		"http://example.com",
		"ftp://example.com",
		"https://example.org",
		"example.org",
		"http://",
		"https://spaces in/path",
	}

	res := Validate(lines)

	assert.False(t, res.Valid)
	invalid := res.Invalid()
	idx := make([]int, len(invalid))
	for i, l := range invalid {
		idx[i] = l.Index
	}
	assert.Equal(t, []int{1, 3, 4, 5}, idx)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "line 2, 4, 5, 6")
}

func TestValidate_EmptyInput(t *testing.T) {
	for name, res := range map[string]ValidationResult{
		"nil slice":       Validate(nil),
		"empty text":      ValidateText(""),
		"whitespace only": ValidateText(" \r\n\t\n"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, res.Valid)
			assert.Empty(t, res.Lines, "empty input carries no per-line detail")
			assert.ErrorIs(t, res.Err(), ErrInvalidInput)
		})
	}
}

func TestValidate_SchemeIsCaseSensitive(t *testing.T) {
	res := Validate([]string{"HTTP://EXAMPLE.COM"})
	assert.False(t, res.Valid)
}

func TestValidate_RejectsTextAroundURL(t *testing.T) {
	res := Validate([]string{"see http://example.com"})
	assert.False(t, res.Valid)
}

func TestValidate_TrimsSurroundingBlanks(t *testing.T) {
	res := Validate([]string{"  http://example.com\t"})
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"http://example.com"}, res.URLs())
}

func TestValidateText_LineEndings(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		lines int
		valid bool
	}{
		{name: "LF", text: "http://a.example\nhttp://b.example", lines: 2, valid: true},
		{name: "CRLF", text: "http://a.example\r\nhttp://b.example\r\n", lines: 2, valid: true},
		{name: "trailing newlines", text: "http://a.example\n\n\n", lines: 1, valid: true},
		{name: "blank line between", text: "http://a.example\n\nhttp://b.example", lines: 3, valid: false},
		{name: "leading blank line", text: "\nhttp://a.example", lines: 2, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateText(tt.text)
			assert.Len(t, res.Lines, tt.lines)
			assert.Equal(t, tt.valid, res.Valid)
		})
	}
}

func TestValidateText_IndexesMatchCallerLines(t *testing.T) {
	res := ValidateText("\nhttp://ok.example\nnot a url\n")

	invalid := res.Invalid()
	require.Len(t, invalid, 2)
	assert.Equal(t, 0, invalid[0].Index)
	assert.Equal(t, 2, invalid[1].Index)
	assert.Equal(t, "not a url", invalid[1].Line)
}
