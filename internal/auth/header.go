package auth

import "strings"

const bearerPrefix = "Bearer "

// bearerToken extracts the compact JWT from an Authorization header value.
func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingAuthorization
	}
	if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrBadAuthorization
	}
	token := strings.TrimSpace(raw[len(bearerPrefix):])
	if strings.Count(token, ".") != 2 {
		return "", ErrBadAuthorization
	}
	return token, nil
}
