package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-admin/internal/service"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

type fakeOpener struct {
	path string
	err  error
}

func (f fakeOpener) Open(token string) (*service.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.Download{File: file, Filename: "students.csv", ContentType: "text/csv", Size: info.Size()}, nil
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n3\n"), 0o600))
	h := NewExportHandler(fakeOpener{path: path})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exports/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "id\n3\n", rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=students.csv", rec.Header().Get("Content-Disposition"))
}

func TestExportHandlerExpiredLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewExportHandler(fakeOpener{err: appErrors.ErrExportExpired})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exports/old", nil)

	h.Download(c)

	assert.Equal(t, http.StatusGone, rec.Code)
}
