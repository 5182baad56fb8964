package crawl

import "strings"

// NormalizeURL canonicalizes user-supplied input into an absolute URL with an
// explicit scheme. Short-link redirects are not resolved here; only a real
// browser navigation reliably follows platform redirectors, so that is left
// to the session manager.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &InvalidInputError{Input: raw}
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed, nil
	}
	return "https://" + trimmed, nil
}
