package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CSRFFormField is the hidden form field report pages post the token in.
const CSRFFormField = "_csrf_token"

const (
	csrfCookieName = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRF protects the report forms (sort toggles and filters) against
// cross-site submission. The secret signs tokens with HMAC-SHA256:
//
//	hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret))
//
// Safe requests get a token cookie (SameSite=Strict, readable by scripts)
// unless a valid one is already present, and the token is exposed to handlers
// through GetCSRFToken. Unsafe requests must echo the cookie's token in the
// CSRFFormField form field or the X-CSRF-Token header; otherwise they are
// rejected with 403.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			abortWithError(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}

	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, secret) {
				token, err = generateToken(secret)
				if err != nil {
					abortWithError(c, http.StatusInternalServerError, "failed to generate CSRF token")
					return
				}
				setCSRFCookie(c, token, secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()
			return
		}

		cookieToken, err := c.Cookie(csrfCookieName)
		if err != nil || cookieToken == "" {
			abortWithError(c, http.StatusForbidden, "CSRF token missing")
			return
		}

		requestToken := c.PostForm(CSRFFormField)
		if requestToken == "" {
			requestToken = c.GetHeader(csrfHeaderName)
		}
		if requestToken == "" {
			abortWithError(c, http.StatusForbidden, "CSRF token missing")
			return
		}

		if !validToken(cookieToken, secret) || !tokensMatch(cookieToken, requestToken) {
			abortWithError(c, http.StatusForbidden, "CSRF token invalid")
			return
		}

		c.Set(csrfContextKey, cookieToken)
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// GetCSRFToken returns the token the CSRF middleware stored for this request,
// or "" when the route is not protected.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfContextKey); exists {
		if s, ok := token.(string); ok {
			return s
		}
	}
	return ""
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, secret), nil
}

func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validToken checks the token's format and HMAC signature.
func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(signNonce(nonce, secret))) == 1
}

func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// setCSRFCookie sets the token cookie. Secure is set in release mode.
func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
