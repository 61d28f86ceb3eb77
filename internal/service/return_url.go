package service

import (
	"net/url"
	"strings"

	"github.com/SinaHo/fyra-signin-backend/internal/provider"
)

// ReturnURLPolicy decides where a sign-in link sends the user back to.
type ReturnURLPolicy struct {
	DefaultOrigin     string
	LocalDevURL       string
	DynamicLinkDomain string
}

// ContinueURL maps the caller's origin to the link's return URL.
// Local development hosts are pinned to LocalDevURL; any other origin is used as is.
func (p ReturnURLPolicy) ContinueURL(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	switch {
	case origin == "":
		return p.DefaultOrigin
	case strings.Contains(origin, "vercel.app"):
		return origin
	case strings.Contains(origin, "localhost") && p.LocalDevURL != "":
		return p.LocalDevURL
	default:
		return origin
	}
}

// Settings builds the provider action code settings for origin.
func (p ReturnURLPolicy) Settings(origin string) provider.ActionCodeSettings {
	return provider.ActionCodeSettings{
		URL:               p.ContinueURL(origin),
		HandleCodeInApp:   true,
		DynamicLinkDomain: p.DynamicLinkDomain,
	}
}

// CodeLink rebuilds a sign-in link around a code the user typed in by hand.
func (p ReturnURLPolicy) CodeLink(code string) string {
	q := url.Values{}
	q.Set("mode", "signIn")
	q.Set("oobCode", code)
	return p.DefaultOrigin + "?" + q.Encode()
}
