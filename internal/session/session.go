// Package session encodes and decodes the authentication cookie.
//
// The whole session lives in the cookie value: there is no server-side store
// and no revocation. The value is base64url-encoded JSON, deliberately
// unsigned to match the behavior of the hosted demo; tampering is bounded by
// the HttpOnly/SameSite cookie flags, and a forged client id still has to
// resolve against the live registry.
package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

// CookieName is the session cookie issued on successful authentication.
const CookieName = "demo_session"

// MaxAge is the fixed lifetime of a session cookie.
const MaxAge = 24 * time.Hour

// Session is the authenticated (client, version) pair carried between
// requests.
type Session struct {
	ClientID  string `json:"client_id"`
	VersionID string `json:"version_id"`
	IssuedAt  int64  `json:"issued_at"`
}

// Encode serializes a session for the given client and version, stamped now.
func Encode(clientID, versionID string) string {
	s := Session{
		ClientID:  clientID,
		VersionID: versionID,
		IssuedAt:  time.Now().Unix(),
	}
	data, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a cookie value. Any malformed value, or one missing the
// client or version, reads as "no session"; decoding never fails loudly.
func Decode(value string) (*Session, bool) {
	if value == "" {
		return nil, false
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, false
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	if s.ClientID == "" || s.VersionID == "" {
		return nil, false
	}
	return &s, true
}

// NewCookie wraps an encoded session value in the Set-Cookie directives the
// server always uses: HTTP-only, root path, strict same-site, fixed max-age.
func NewCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(MaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// Clear produces the cookie that expires any existing session on logout.
func Clear() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// FromRequest extracts and decodes the session cookie from a request.
func FromRequest(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return Decode(c.Value)
}
