package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

func testContext(accept string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/page", nil)
	if accept != "" {
		c.Request.Header.Set("Accept", accept)
	}
	return c, rec
}

func TestWantsJSON(t *testing.T) {
	c, _ := testContext("application/json")
	assert.True(t, WantsJSON(c))

	c, _ = testContext("text/html,application/xhtml+xml")
	assert.False(t, WantsJSON(c))
}

func TestErrorUsesStatusAndCode(t *testing.T) {
	c, rec := testContext("application/json")
	Error(c, appErrors.ErrDeleteInFlight)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"DELETE_IN_FLIGHT"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestSeeOther(t *testing.T) {
	c, rec := testContext("")
	SeeOther(c, "/students")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))
}
