package store

import (
	"net/url"
	"strings"
)

// ValidateLink trims title and rawURL and checks them. The trimmed values
// are returned so callers persist exactly what was validated.
func ValidateLink(title, rawURL string) (string, string, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	if title == "" {
		return "", "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if rawURL == "" {
		return "", "", &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	if err := ValidateURL(rawURL); err != nil {
		return "", "", err
	}
	return title, rawURL, nil
}

// ValidateURL checks that raw parses as an absolute URL with a host,
// e.g. "https://example.com/offer".
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: "is not a valid URL"}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must be absolute (including http:// or https://)"}
	}
	return nil
}
