package display

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 80

// Wrap word-wraps text to width columns, preserving ANSI escape sequences.
// A width below one uses DefaultWidth.
func Wrap(text string, width int) string {
	if width < 1 {
		width = DefaultWidth
	}
	return wordwrap.String(text, width)
}

// Name normalises a chosen name for display, so "hERO" becomes "Hero".
func Name(s string) string {
	// a Caser keeps state between calls and cannot be shared
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
