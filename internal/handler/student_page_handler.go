package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	"github.com/noah-isme/sma-adp-admin/internal/i18n"
	"github.com/noah-isme/sma-adp-admin/internal/middleware"
	"github.com/noah-isme/sma-adp-admin/internal/models"
	"github.com/noah-isme/sma-adp-admin/internal/service"
	"github.com/noah-isme/sma-adp-admin/internal/web"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
	"github.com/noah-isme/sma-adp-admin/pkg/response"
)

const studentsPath = "/students"

type studentPageService interface {
	View(ctx context.Context, sessionID string) (dashboard.View, bool, error)
	State(ctx context.Context, sessionID string) (dashboard.View, error)
	Search(ctx context.Context, sessionID, term string) error
	ApplySearchNow(ctx context.Context, sessionID, term string) error
	SetPage(ctx context.Context, sessionID string, n int) error
	SelectAll(ctx context.Context, sessionID string, checked bool) error
	ToggleRow(ctx context.Context, sessionID string, id int64, checked bool) error
	OpenDelete(ctx context.Context, sessionID string, id int64) error
	CancelDelete(ctx context.Context, sessionID string) error
	ConfirmDelete(ctx context.Context, sessionID string) (*models.MessageResponse, error)
	Export(ctx context.Context, sessionID string) (*models.ExportLink, error)
	Snapshot(ctx context.Context, sessionID, format string, tr service.Translator) (*models.RenderedFile, error)
	SearchDebounce() time.Duration
}

// StudentPageOptions configures rendering of the students page.
type StudentPageOptions struct {
	Links    web.Links
	LoginURL string
	Catalog  *i18n.Catalog
}

// StudentPageHandler serves the students page and its actions.
type StudentPageHandler struct {
	svc       studentPageService
	opts      StudentPageOptions
	languages []string
	logger    *zap.Logger
}

// NewStudentPageHandler constructs the handler.
func NewStudentPageHandler(svc studentPageService, opts StudentPageOptions, logger *zap.Logger) *StudentPageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	languages := make([]string, 0)
	for _, tag := range opts.Catalog.Supported() {
		languages = append(languages, tag.String())
	}
	return &StudentPageHandler{svc: svc, opts: opts, languages: languages, logger: logger}
}

// Page renders the students page. The optional name and page query
// parameters are applied before fetching.
func (h *StudentPageHandler) Page(c *gin.Context) {
	ctx, sid := requestContext(c), middleware.SessionID(c)
	if name, ok := c.GetQuery("name"); ok {
		if err := h.svc.ApplySearchNow(ctx, sid, name); err != nil {
			h.fail(c, err)
			return
		}
	}
	if raw, ok := c.GetQuery("page"); ok {
		page, err := parsePage(raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.svc.SetPage(ctx, sid, page); err != nil {
			h.fail(c, err)
			return
		}
	}
	h.render(c, web.PageTemplate)
}

// Table renders only the refreshable region of the page.
func (h *StudentPageHandler) Table(c *gin.Context) {
	h.render(c, web.RegionTemplate)
}

// State godoc
// @Summary Students page state
// @Description Runs one listing fetch for the session and returns the page state.
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/state [get]
func (h *StudentPageHandler) State(c *gin.Context) {
	view, hit, err := h.svc.View(requestContext(c), middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, view.Pagination, middleware.ExtractMeta(c))
}

// Search godoc
// @Summary Update the search term
// @Description Script clients get the debounced behaviour; plain form posts apply the term at once.
// @Tags Students
// @Accept x-www-form-urlencoded
// @Produce json
// @Param name formData string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /students/search [post]
func (h *StudentPageHandler) Search(c *gin.Context) {
	ctx, sid := requestContext(c), middleware.SessionID(c)
	term := c.PostForm("name")
	if response.WantsJSON(c) {
		h.finish(c, h.svc.Search(ctx, sid, term))
		return
	}
	h.finish(c, h.svc.ApplySearchNow(ctx, sid, term))
}

// SetPage godoc
// @Summary Change page
// @Tags Students
// @Accept x-www-form-urlencoded
// @Produce json
// @Param page formData int true "Page number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/page [post]
func (h *StudentPageHandler) SetPage(c *gin.Context) {
	page, err := parsePage(c.PostForm("page"))
	if err != nil {
		h.finish(c, err)
		return
	}
	h.finish(c, h.svc.SetPage(requestContext(c), middleware.SessionID(c), page))
}

// SelectAll godoc
// @Summary Select or clear every row on the page
// @Tags Students
// @Accept x-www-form-urlencoded
// @Produce json
// @Param checked formData bool true "Selected"
// @Success 200 {object} response.Envelope
// @Router /students/selection/all [post]
func (h *StudentPageHandler) SelectAll(c *gin.Context) {
	checked, err := parseChecked(c)
	if err != nil {
		h.finish(c, err)
		return
	}
	h.finish(c, h.svc.SelectAll(requestContext(c), middleware.SessionID(c), checked))
}

// ToggleRow godoc
// @Summary Select or deselect one row
// @Tags Students
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path int true "Student ID"
// @Param checked formData bool true "Selected"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/selection/rows/{id} [post]
func (h *StudentPageHandler) ToggleRow(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.finish(c, err)
		return
	}
	checked, err := parseChecked(c)
	if err != nil {
		h.finish(c, err)
		return
	}
	h.finish(c, h.svc.ToggleRow(requestContext(c), middleware.SessionID(c), id, checked))
}

// OpenDelete godoc
// @Summary Ask for delete confirmation
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/rows/{id}/delete [post]
func (h *StudentPageHandler) OpenDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.finish(c, err)
		return
	}
	h.finish(c, h.svc.OpenDelete(requestContext(c), middleware.SessionID(c), id))
}

// CancelDelete godoc
// @Summary Close the delete confirmation
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/delete/cancel [post]
func (h *StudentPageHandler) CancelDelete(c *gin.Context) {
	h.finish(c, h.svc.CancelDelete(requestContext(c), middleware.SessionID(c)))
}

// ConfirmDelete godoc
// @Summary Delete the student awaiting confirmation
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/delete/confirm [post]
func (h *StudentPageHandler) ConfirmDelete(c *gin.Context) {
	resp, err := h.svc.ConfirmDelete(requestContext(c), middleware.SessionID(c))
	if err != nil {
		h.finish(c, err)
		return
	}
	h.logger.Info("student delete confirmed", zap.String("actor", actorFromContext(c)))
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, resp, nil)
		return
	}
	response.SeeOther(c, studentsPath)
}

// Export godoc
// @Summary Export the selected students
// @Description Requests the export from the student API and returns a signed, expiring download link.
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/export [post]
func (h *StudentPageHandler) Export(c *gin.Context) {
	link, err := h.svc.Export(requestContext(c), middleware.SessionID(c))
	if err != nil {
		h.finish(c, err)
		return
	}
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, link, nil)
		return
	}
	response.SeeOther(c, link.URL)
}

// Snapshot godoc
// @Summary Download the selected rows of the loaded page
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export/snapshot [get]
func (h *StudentPageHandler) Snapshot(c *gin.Context) {
	l := localizerFor(c, h.opts.Catalog)
	file, err := h.svc.Snapshot(requestContext(c), middleware.SessionID(c), c.DefaultQuery("format", "csv"), l)
	if err != nil {
		if response.WantsJSON(c) || !errors.Is(err, appErrors.ErrNoSelection) {
			response.Error(c, err)
			return
		}
		response.SeeOther(c, studentsPath)
		return
	}
	setAttachment(c, file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *StudentPageHandler) render(c *gin.Context, name string) {
	view, _, err := h.svc.View(requestContext(c), middleware.SessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	l := localizerFor(c, h.opts.Catalog)
	c.HTML(http.StatusOK, name, web.NewPage(l, view, h.opts.Links, h.svc.SearchDebounce(), h.languages))
}

// finish answers a page action: JSON clients get the error or the new state,
// browsers are sent back to the page.
func (h *StudentPageHandler) finish(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if response.WantsJSON(c) {
		view, err := h.svc.State(requestContext(c), middleware.SessionID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view, view.Pagination)
		return
	}
	response.SeeOther(c, studentsPath)
}

// fail reports err. Browsers are redirected back to the page, which shows any
// notice the failure queued, or to the login page when the session is no
// longer authenticated.
func (h *StudentPageHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if isServerError(err) {
		h.logger.Warn("students page action failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	if response.WantsJSON(c) {
		response.Error(c, err)
		return
	}
	if errors.Is(err, appErrors.ErrUnauthorized) && h.opts.LoginURL != "" {
		response.SeeOther(c, middleware.LoginRedirect(h.opts.LoginURL, studentsPath))
		return
	}
	if c.Request.Method == http.MethodGet {
		response.Error(c, err)
		return
	}
	response.SeeOther(c, studentsPath)
}
