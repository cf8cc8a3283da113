// Package clean turns scraped page text into plain model input.
package clean

import (
	"regexp"
	"strings"
)

var (
	tagRegex     = regexp.MustCompile(`<[^>]*?>`)
	urlRegex     = regexp.MustCompile(`https?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*(),]|%[0-9a-fA-F]{2})+`)
	specialRegex = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

// Text strips tag-like substrings and URLs, replaces every character other than
// ASCII letters, digits and spaces with a space, and collapses whitespace.
func Text(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = urlRegex.ReplaceAllString(s, "")
	s = specialRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
