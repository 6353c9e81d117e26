package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, header string) (string, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var fromGin, fromCtx string
	router.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Header().Get(headerKey), fromGin, fromCtx
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	echoed, fromGin, fromCtx := serve(t, "abc-123")
	assert.Equal(t, "abc-123", echoed)
	assert.Equal(t, "abc-123", fromGin)
	assert.Equal(t, "abc-123", fromCtx)
}

func TestMiddlewareGeneratesID(t *testing.T) {
	echoed, fromGin, _ := serve(t, "")
	assert.Len(t, echoed, 36)
	assert.Equal(t, echoed, fromGin)

	echoed, _, _ = serve(t, strings.Repeat("x", 200))
	assert.Len(t, echoed, 36)
}
