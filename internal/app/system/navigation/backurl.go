// Package navigation provides helpers for safe URL navigation and redirects.
package navigation

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// BackURLOptions configures the behavior of SafeBackURL.
type BackURLOptions struct {
	// AllowedPrefix is the required URL prefix (e.g., "/api"). If empty, any
	// safe local URL is allowed.
	AllowedPrefix string

	// ExcludedPrefixes are rejected to avoid redirect loops (e.g., "/login").
	ExcludedPrefixes []string

	// Fallback is the default URL if no valid return URL is found.
	Fallback string
}

// SafeBackURL extracts and validates the "return" URL from the query or the
// form. Only local paths pass; anything else yields the fallback.
func SafeBackURL(r *http.Request, opts BackURLOptions) string {
	ret := urlutil.SafeReturn(query.Get(r, "return"), "", "")
	if ret == "" && r.Method == http.MethodPost && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		ret = urlutil.SafeReturn(strings.TrimSpace(r.FormValue("return")), "", "")
	}
	if ret == "" {
		return opts.Fallback
	}
	if opts.AllowedPrefix != "" && !strings.HasPrefix(ret, opts.AllowedPrefix) {
		return opts.Fallback
	}
	for _, p := range opts.ExcludedPrefixes {
		if strings.HasPrefix(ret, p) {
			return opts.Fallback
		}
	}
	return ret
}

// AfterLogin is where a successful sign-in sends the browser.
var AfterLogin = BackURLOptions{
	ExcludedPrefixes: []string{"/login", "/logout"},
	Fallback:         "/api/dashboard",
}
