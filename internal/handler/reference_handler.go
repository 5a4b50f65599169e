package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type referenceService interface {
	Reference(ctx context.Context) (models.ReferenceData, error)
	Import(ctx context.Context, actor models.Actor, r io.Reader) (models.ReferenceData, error)
	Export(ctx context.Context, w io.Writer) error
}

// ReferenceHandler serves mosque and day lookups.
type ReferenceHandler struct {
	service referenceService
	now     func() time.Time
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(svc referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc, now: time.Now}
}

// Get godoc
// @Summary Mosques and days
// @Tags Reference
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reference [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	data, err := h.service.Reference(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Import godoc
// @Summary Replace reference data from a workbook
// @Description The workbook needs a mosques sheet (mosque_code, المسجد, نوع الموقع) and a days sheet (code_day, label)
// @Tags Reference
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Reference workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reference/import [post]
func (h *ReferenceHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	data, err := h.service.Import(c.Request.Context(), actor, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil, map[string]interface{}{
		"mosques": len(data.Mosques),
		"days":    len(data.Days),
	})
}

// Export godoc
// @Summary Download reference data as a workbook
// @Tags Reference
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Router /reference/export [get]
func (h *ReferenceHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("reference_%s.xlsx", h.now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
