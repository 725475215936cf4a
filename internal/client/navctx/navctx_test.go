package navctx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenFromPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "reset password link", path: "/reset-password/abc123", want: "abc123"},
		{name: "verify email link", path: "/verify-email/tok-9", want: "tok-9"},
		{name: "short verify link", path: "/verify/xyz", want: "xyz"},
		{name: "trailing segment ignored", path: "/reset-password/abc123/extra", want: "abc123"},
		{name: "unrelated path", path: "/projects/p1", want: ""},
		{name: "prefix without token", path: "/reset-password/", want: ""},
		{name: "empty path", path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TokenFromPath(tt.path))
		})
	}
}

func TestResolveToken_ExplicitWinsOverPath(t *testing.T) {
	require.Equal(t, "explicit", ResolveToken("explicit", "/reset-password/from-path"))
}

func TestResolveToken_FallsBackToPath(t *testing.T) {
	require.Equal(t, "from-path", ResolveToken("", "/reset-password/from-path"))
}

func TestResolveToken_EmptyWhenNeitherPresent(t *testing.T) {
	require.Empty(t, ResolveToken("", "/projects"))
}

func TestReferralFromURL(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{name: "ref present", rawURL: "https://craft.example.com/signup?ref=FRIEND01", want: "FRIEND01"},
		{name: "ref among other params", rawURL: "/signup?utm=x&ref=AB12CD34", want: "AB12CD34"},
		{name: "ref absent", rawURL: "/signup?utm=x", want: ""},
		{name: "no query", rawURL: "/signup", want: ""},
		{name: "unparsable url", rawURL: "://broken", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ReferralFromURL(tt.rawURL))
		})
	}
}
