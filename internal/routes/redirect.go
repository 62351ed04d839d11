package routes

import (
	"net/url"
	"strings"
)

// Query parameters shared by the gatekeeper, the login flow and the session contexts.
const (
	RedirectParam = "redirect"
	ReferralParam = "ref"
)

// OriginalURL joins a path and its raw query the way the browser shows them
func OriginalURL(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// LoginURL builds the login detour carrying the original destination
func LoginURL(loginPath, original string) string {
	v := url.Values{}
	v.Set(RedirectParam, original)
	return loginPath + "?" + v.Encode()
}

// PostLoginTarget returns the redirect query value when it is a local path,
// otherwise fallback. Both layers use it so they agree on the destination.
func PostLoginTarget(query url.Values, fallback string) string {
	target := query.Get(RedirectParam)
	if !IsLocalPath(target) {
		return fallback
	}
	return target
}

// IsLocalPath reports whether target stays on this origin
func IsLocalPath(target string) bool {
	if target == "" || !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	return !strings.ContainsAny(target, "\r\n")
}

// NormalizeReferral trims and upper-cases a referral code taken from the ref parameter
func NormalizeReferral(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
