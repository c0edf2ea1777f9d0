package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-transfer/internal/models"
	"github.com/damacus/iron-transfer/internal/utils"
)

// setFlash stores a notice for the next page load
func setFlash(c echo.Context, level, message string) {
	payload, err := json.Marshal(models.Flash{Level: level, Message: message})
	if err != nil {
		return
	}

	cookie := new(http.Cookie)
	cookie.Name = utils.FlashCookieName
	cookie.Value = base64.RawURLEncoding.EncodeToString(payload)
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = utils.IsSecureRequest(c)
	c.SetCookie(cookie)
}

// consumeFlash returns the pending notice, if any, and expires it
func consumeFlash(c echo.Context) *models.Flash {
	cookie, err := c.Cookie(utils.FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	c.SetCookie(&http.Cookie{
		Name:     utils.FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   utils.IsSecureRequest(c),
	})

	payload, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flash models.Flash
	if err := json.Unmarshal(payload, &flash); err != nil || flash.Message == "" {
		return nil
	}
	return &flash
}
