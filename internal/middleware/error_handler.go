package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CustomErrorHandler creates a custom error handler for Echo
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := ""

	// Check if it's an Echo HTTPError
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
	}
	if message == "" {
		switch code {
		case http.StatusNotFound:
			message = "The resource you're looking for doesn't exist."
		case http.StatusForbidden:
			message = "You don't have permission to access this resource."
		case http.StatusUnprocessableEntity:
			message = "The request could not be processed."
		case http.StatusBadRequest:
			message = "The request could not be processed."
		default:
			message = "Something went wrong. Please try again later."
		}
	}

	// Log the error
	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, map[string]interface{}{
		"success": false,
		"message": message,
	}); err != nil {
		c.Logger().Error(err)
	}
}
