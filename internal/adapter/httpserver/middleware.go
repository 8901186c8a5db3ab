package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contextKeyRequestID = "requestID"
	contextKeyClientID  = "clientID"

	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"
)

// requestIDMiddleware tags every request with a UUID, honoring an
// inbound X-Request-ID from a trusted proxy if present.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Response().Header().Set(headerRequestID, id)
		return next(c)
	}
}

// apiKeyAuth validates the X-API-Key header against the configured key set.
// When no keys are configured (development), auth is disabled and clients
// are identified by source IP instead.
func (s *Server) apiKeyAuth() echo.MiddlewareFunc {
	// Pre-hash configured keys so the per-request comparison is
	// constant-time regardless of key length.
	hashedKeys := make([][sha256.Size]byte, len(s.config.APIKeys))
	for i, key := range s.config.APIKeys {
		hashedKeys[i] = sha256.Sum256([]byte(key))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(hashedKeys) == 0 {
				c.Set(contextKeyClientID, c.RealIP())
				return next(c)
			}

			presented := c.Request().Header.Get(headerAPIKey)
			if presented == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing API key")
			}

			presentedHash := sha256.Sum256([]byte(presented))
			for _, known := range hashedKeys {
				if hmac.Equal(presentedHash[:], known[:]) {
					c.Set(contextKeyClientID, keyFingerprint(presentedHash))
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
		}
	}
}

// keyFingerprint derives a stable, non-reversible client identifier
// from an API key hash. Rate limit quotas are tracked per key.
func keyFingerprint(hash [sha256.Size]byte) string {
	return "key:" + hex.EncodeToString(hash[:8])
}

// clientID returns the identifier established by apiKeyAuth, falling
// back to the source IP for routes outside the authenticated group.
func clientID(c echo.Context) string {
	if id, ok := c.Get(contextKeyClientID).(string); ok && id != "" {
		return id
	}
	return c.RealIP()
}
