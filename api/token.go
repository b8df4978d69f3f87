package api

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// TokenExpiresAt extracts the expiry time from a JWT-style bearer token.
// Only the payload is decoded; signatures are the backend's business.
// The second return is false when the token carries no decodable expiry,
// in which case the token is treated as non-expiring.
func TokenExpiresAt(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}

// TokenExpired reports whether a bearer token is decodable and past its
// expiry. Tokens without a decodable expiry are never considered expired.
func TokenExpired(token string) bool {
	exp, ok := TokenExpiresAt(token)
	return ok && time.Now().After(exp)
}
