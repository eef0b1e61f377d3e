// Package htmlsanitize cleans staff-entered rich text (notification bodies)
// before it is stored.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

func contentPolicy() *bluemonday.Policy {
	once.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "mark", "sub", "sup")
		p.AllowAttrs("class").OnElements("table", "tr", "td", "th", "p", "span")
		policy = p
	})
	return policy
}

// Sanitize strips scripts, event handlers, iframes, styles, and unsafe URLs,
// keeping ordinary formatting, lists, tables, and links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return contentPolicy().Sanitize(s)
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
