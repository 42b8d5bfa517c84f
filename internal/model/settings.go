package model

import "time"

// AppSettings is the singleton settings record.
// TokenExpiry is an epoch-millisecond instant.
type AppSettings struct {
	ClientID    string `json:"clientId"`
	AccessToken string `json:"accessToken"`
	TokenExpiry int64  `json:"tokenExpiry"`
}

// IsTokenValid reports whether the access token is present and unexpired at now.
func (s AppSettings) IsTokenValid(now time.Time) bool {
	return s.AccessToken != "" && s.TokenExpiry > now.UnixMilli()
}

// ExpiresAt returns the token expiry as a time.Time.
func (s AppSettings) ExpiresAt() time.Time {
	return time.UnixMilli(s.TokenExpiry)
}

// TokenExpiryFrom computes the stored expiry for a token issued at now that
// lives for expiresIn seconds.
func TokenExpiryFrom(now time.Time, expiresIn int64) int64 {
	return now.UnixMilli() + expiresIn*1000
}
