package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-transfer/internal/services"
	"github.com/damacus/iron-transfer/internal/session"
	"github.com/damacus/iron-transfer/internal/utils"
	"github.com/damacus/iron-transfer/pkg/logger"
)

// SessionMiddleware makes sure every browser carries a sealed session id
// cookie and exposes the id to handlers under utils.ContextKeySession.
func SessionMiddleware(sealer *services.CookieSealer, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/health" {
				return next(c)
			}

			if cookie, err := c.Cookie(utils.CookieName); err == nil {
				id, err := sealer.Open(cookie.Value)
				if err == nil && session.ValidID(id) {
					// Sliding expiry: every request pushes the cookie lifetime forward.
					setSessionCookie(c, cookie.Value, ttl)
					c.Set(utils.ContextKeySession, id)
					return next(c)
				}
				logger.Log.Debug().Err(err).Msg("discarding unreadable session cookie")
			}

			id := session.NewID()
			sealed, err := sealer.Seal(id)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start session")
			}

			setSessionCookie(c, sealed, ttl)
			c.Set(utils.ContextKeySession, id)
			return next(c)
		}
	}
}

func setSessionCookie(c echo.Context, sealed string, ttl time.Duration) {
	cookie := new(http.Cookie)
	cookie.Name = utils.CookieName
	cookie.Value = sealed
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = utils.IsSecureRequest(c)
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	}
	c.SetCookie(cookie)
}
