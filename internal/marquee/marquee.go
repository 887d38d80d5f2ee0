// Package marquee implements the scrolling text window used for names that
// do not fit their display field.
package marquee

import "unicode/utf8"

const (
	// ListWidth is the visible width of the selected saved-network row.
	ListWidth = 18
	// ConfirmWidth is the visible width of the network name on the
	// connect confirmation screen.
	ConfirmWidth = 20
	// TruncateWidth is the width of unselected rows, which never scroll.
	TruncateWidth = 17

	separator = "  ...  "
	tailRunes = 10
)

// Scrolls reports whether text is too long for a field of width runes.
func Scrolls(text string, width int) bool {
	return utf8.RuneCountInString(text) > width
}

// Next returns the offset following offset for text. The cycle length is
// the text length plus the separator, after which the loop repeats.
func Next(text string, offset int) int {
	period := utf8.RuneCountInString(text) + utf8.RuneCountInString(separator)
	return (offset + 1) % period
}

// Window returns the visible slice of text at offset for a field of width
// runes. Text that fits is returned unchanged.
func Window(text string, offset, width int) string {
	if !Scrolls(text, width) {
		return text
	}

	runes := []rune(text)
	tail := runes
	if len(tail) > tailRunes {
		tail = tail[:tailRunes]
	}
	loop := append(append(append([]rune{}, runes...), []rune(separator)...), tail...)

	if offset < 0 || offset >= len(loop) {
		offset = 0
	}
	end := offset + width
	if end > len(loop) {
		end = len(loop)
	}
	return string(loop[offset:end])
}

// Truncate cuts text to width runes without an ellipsis.
func Truncate(text string, width int) string {
	if !Scrolls(text, width) {
		return text
	}
	return string([]rune(text)[:width])
}
