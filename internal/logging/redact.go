// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package logging

import (
	"net/url"
)

// sensitiveParams are query parameters masked by RedactURL.
var sensitiveParams = []string{"apikey", "api_key", "key", "token"}

// SanitizeToken masks a secret, showing only the first and last 4 characters.
// Example: "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0" -> "0f1e...e1f0"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactURL returns raw with credential query parameters masked, so map SDK
// URLs can be logged. Unparseable input is replaced entirely.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	changed := false
	for _, name := range sensitiveParams {
		if v := q.Get(name); v != "" {
			q.Set(name, SanitizeToken(v))
			changed = true
		}
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
