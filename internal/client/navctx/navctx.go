// Package navctx extracts auth-flow inputs from the current navigation
// context: reset/verification tokens embedded in a path and referral
// codes carried in a query string.
package navctx

import (
	"net/url"
	"strings"
)

// Path prefixes under which the backend links embed a flow token.
var tokenPrefixes = []string{
	"/reset-password/",
	"/verify-email/",
	"/verify/",
}

// TokenFromPath returns the token embedded in path, or "" when the path
// carries none.
func TokenFromPath(path string) string {
	for _, prefix := range tokenPrefixes {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			return rest
		}
	}
	return ""
}

// ResolveToken picks the effective flow token: an explicitly supplied
// token always wins over one parsed out of the path.
func ResolveToken(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	return TokenFromPath(path)
}

// ReferralFromURL returns the referral code from the "ref" query
// parameter of rawURL, or "" when absent or unparsable. The code is
// returned as-is; normalization and validation belong to the auth flow.
func ReferralFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("ref")
}
