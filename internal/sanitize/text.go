package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML tags and attributes. Student names and
// course titles are plain text; markup in those fields is never legitimate.
var strictPolicy = bluemonday.StrictPolicy()

// Text strips HTML, decodes entities the policy escaped, and collapses
// internal whitespace to single spaces.
func Text(input string) string {
	cleaned := strictPolicy.Sanitize(input)
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
