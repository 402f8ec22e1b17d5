package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-admin/internal/service"
	"github.com/noah-isme/sma-adp-admin/pkg/response"
)

type exportOpener interface {
	Open(token string) (*service.Download, error)
}

// ExportHandler serves stored exports behind signed links.
type ExportHandler struct {
	exports exportOpener
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports exportOpener) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a stored export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed export token"
// @Success 200 {file} file
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	dl, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.File.Close() //nolint:errcheck

	setAttachment(c, dl.Filename)
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.File, nil)
}
