package security

import (
	"net/http"
	"net/url"
	"strings"
)

// Sensitive header names that should be redacted.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
}

// Sensitive query parameter name fragments.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"key",
	"signature",
	"credential",
	"auth",
}

const redactedValue = "[REDACTED]"

// SanitizeHeaders flattens headers for logging with sensitive values redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))

	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}

	return sanitized
}

// SanitizeURL redacts user info and sensitive query parameters. Strings that
// do not parse as URLs are returned unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.User != nil {
		u.User = url.User(redactedValue)
	}

	if u.RawQuery != "" {
		query := u.Query()
		changed := false
		for name := range query {
			if isSensitive(name) {
				query.Set(name, redactedValue)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	return u.String()
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}
