package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func corsServer(origins ...string) *echo.Echo {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet},
		AllowHeaders:  []string{echo.HeaderContentType},
		ExposeHeaders: []string{echo.HeaderCacheControl},
		MaxAge:        600,
	}))
	e.GET("/api/chunks", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.OPTIONS("/api/chunks", func(c echo.Context) error { return c.NoContent(http.StatusMethodNotAllowed) })
	return e
}

func serve(e *echo.Echo, method, origin string, preflight bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/chunks", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	if preflight {
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowedOrigin(t *testing.T) {
	rec := serve(corsServer("https://chart.example"), http.MethodGet, "https://chart.example", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://chart.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, echo.HeaderCacheControl, rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
	assert.Equal(t, echo.HeaderOrigin, rec.Header().Get(echo.HeaderVary))
}

func TestCORSUnknownOriginPassesThrough(t *testing.T) {
	rec := serve(corsServer("https://chart.example"), http.MethodGet, "https://evil.example", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSPreflight(t *testing.T) {
	rec := serve(corsServer("*"), http.MethodOptions, "https://any.example", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, http.MethodGet, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestCORSPlainOptionsReachesRoute(t *testing.T) {
	rec := serve(corsServer("*"), http.MethodOptions, "https://any.example", false)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
