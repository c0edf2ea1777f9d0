package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-transfer/internal/utils"
)

// GetSessionID retrieves the session id placed in the context by the
// session middleware
func GetSessionID(c echo.Context) (string, error) {
	id, ok := c.Get(utils.ContextKeySession).(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "Session unavailable")
	}
	return id, nil
}

// HTMXRedirect sets the HX-Redirect header and returns a 200 OK response.
// This is used for HTMX requests that should trigger a client-side redirect.
func HTMXRedirect(c echo.Context, url string) error {
	c.Response().Header().Set("HX-Redirect", url)
	return c.NoContent(http.StatusOK)
}
