package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/albumranker/internal/shared"
)

// SessionCookie is the name of the authentication cookie.
const SessionCookie = "albumranker"

// sessionTTL is how long an issued session stays valid.
const sessionTTL = 30 * 24 * time.Hour

// SessionManager issues and verifies stateless signed session cookies.
//
// The cookie value is "userID.expiresUnix.signature" where the signature is
// an HMAC-SHA256 over the first two fields. Tampering with either field
// invalidates the signature, and no session state lives on the server.
type SessionManager struct {
	secret []byte
}

// NewSessionManager creates a SessionManager signing with secret.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{secret: []byte(secret)}
}

func (s *SessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue sets the session cookie for userID on the response.
func (s *SessionManager) Issue(w http.ResponseWriter, userID string) {
	expires := time.Now().Add(sessionTTL)
	payload := fmt.Sprintf("%s.%d", userID, expires.Unix())
	value := payload + "." + s.sign(payload)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Verify extracts and validates the session from the request cookie,
// returning the authenticated user id.
func (s *SessionManager) Verify(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", shared.ErrNotAuthenticated
	}

	return s.verifyValue(cookie.Value)
}

func (s *SessionManager) verifyValue(value string) (string, error) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", shared.ErrNotAuthenticated
	}

	userID, expiresRaw, signature := parts[0], parts[1], parts[2]

	payload := userID + "." + expiresRaw
	expected := s.sign(payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", shared.ErrNotAuthenticated
	}

	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return "", shared.ErrNotAuthenticated
	}

	return userID, nil
}
