package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ApiGzipSkipper api server skipper, return true: do not gzip
func ApiGzipSkipper(c echo.Context) bool {
	// skip localhost
	if LocalhostSkipper(c) {
		return true
	}

	// batch lists may be large, gzip the mst api only
	if !strings.HasPrefix(c.Path(), "/api/v1/mst/") {
		return true
	}

	return false
}
