package service

import (
	"net/url"
	"strings"
)

// IsValidBookmarkURL accepts only http and https URLs with a host. javascript:,
// data:, file: and anything unparsable are rejected. Like a browser, it
// also takes a host that follows the scheme without the "//", as in
// "http:example.com" or "http:///example.com".
func IsValidBookmarkURL(raw *string) bool {
	if raw == nil || *raw == "" {
		return false
	}
	u, err := url.Parse(*raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" || impliedHost(u) != ""
}

func impliedHost(u *url.URL) string {
	rest := u.Opaque
	if rest == "" {
		rest = u.Path
	}
	host, _, _ := strings.Cut(strings.TrimLeft(rest, "/\\"), "/")
	return host
}
