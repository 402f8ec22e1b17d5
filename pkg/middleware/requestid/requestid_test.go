package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, incoming string) (ginID, ctxID string, rec *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		ginID = Value(c)
		ctxID = FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(Header, incoming)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return ginID, ctxID, rec
}

func TestMiddlewareGeneratesID(t *testing.T) {
	ginID, ctxID, rec := serve(t, "")

	assert.NotEmpty(t, ginID)
	assert.Equal(t, ginID, ctxID)
	assert.Equal(t, ginID, rec.Header().Get(Header))
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	_, ctxID, rec := serve(t, "abc-123")

	assert.Equal(t, "abc-123", rec.Header().Get(Header))
	assert.Equal(t, "abc-123", ctxID)
}

func TestMiddlewareReplacesMalformedID(t *testing.T) {
	ginID, _, _ := serve(t, "bad id\r\nx")

	assert.NotEqual(t, "bad id\r\nx", ginID)
	assert.Len(t, ginID, 36)
}

func TestFromContextEmpty(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}
