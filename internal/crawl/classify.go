package crawl

import (
	"net/url"
	"strings"
)

// Classify maps a normalized URL and an optional caller hint to an adapter
// identifier. A valid hint wins; otherwise the hostname decides, and General
// is the universal fallback. Classification never fails.
func Classify(normalizedURL string, hint Platform) Platform {
	if KnownPlatform(hint) {
		return hint
	}
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return PlatformGeneral
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "naver.me",
		host == "place.naver.com",
		host == "m.place.naver.com",
		strings.HasSuffix(host, ".place.naver.com"):
		return PlatformNaverPlace
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return PlatformInstagram
	}
	return PlatformGeneral
}
