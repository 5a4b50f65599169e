package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/middleware"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/response"
)

type reviewService interface {
	Snapshot(actor models.Actor, kind models.RecordKind) (models.SelectionSnapshot, error)
	Toggle(actor models.Actor, kind models.RecordKind, id string) (models.SelectionSnapshot, error)
	ToggleAll(actor models.Actor, kind models.RecordKind) (models.SelectionSnapshot, error)
	Bulk(actor models.Actor, kind models.RecordKind, status models.ApprovalStatus) (<-chan service.DispatchResult, models.BulkRequest, error)
}

// SelectionHandler exposes the reviewer's row selection and bulk actions.
type SelectionHandler struct {
	review      reviewService
	waitTimeout time.Duration
}

// NewSelectionHandler constructs the handler.
func NewSelectionHandler(review reviewService, waitTimeout time.Duration) *SelectionHandler {
	return &SelectionHandler{review: review, waitTimeout: waitTimeout}
}

// Get godoc
// @Summary Current selection
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /selection/{kind} [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	actor, kind, ok := h.scope(c)
	if !ok {
		return
	}
	snap, err := h.review.Snapshot(actor, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Toggle godoc
// @Summary Select or deselect one row
// @Description Rows outside the last listed view are ignored
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param payload body dto.SelectionToggle true "Row"
// @Success 200 {object} response.Envelope
// @Router /selection/{kind}/toggle [post]
func (h *SelectionHandler) Toggle(c *gin.Context) {
	actor, kind, ok := h.scope(c)
	if !ok {
		return
	}
	var req dto.SelectionToggle
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "id is required"))
		return
	}
	snap, err := h.review.Toggle(actor, kind, req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// ToggleAll godoc
// @Summary Select every visible row, or clear the selection when all are selected
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Success 200 {object} response.Envelope
// @Router /selection/{kind}/toggle-all [post]
func (h *SelectionHandler) ToggleAll(c *gin.Context) {
	actor, kind, ok := h.scope(c)
	if !ok {
		return
	}
	snap, err := h.review.ToggleAll(actor, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Bulk godoc
// @Summary Apply a status to every selected row
// @Description Only يعتمد and مرفوض are accepted. The selection is cleared before the store answers. An empty selection is a no-op.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param wait query bool false "Wait for the store to confirm (default true)"
// @Param payload body models.StatusChange true "Status"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /selection/{kind}/bulk [post]
func (h *SelectionHandler) Bulk(c *gin.Context) {
	actor, kind, ok := h.scope(c)
	if !ok {
		return
	}
	var req models.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(string(req.Status)) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "status is required"))
		return
	}

	results, bulk, err := h.review.Bulk(actor, kind, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	ack := dto.DispatchAck{Kind: kind, RecordIDs: bulk.IDs, Status: string(req.Status)}
	if results == nil {
		ack.RecordIDs = []string{}
		middleware.SetMeta(c, "dispatched", false)
		response.JSON(c, http.StatusOK, ack, nil, middleware.ExtractMeta(c))
		return
	}
	respondDispatch(c, results, ack, h.waitTimeout)
}

func (h *SelectionHandler) scope(c *gin.Context) (models.Actor, models.RecordKind, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return models.Actor{}, "", false
	}
	kind, ok := kindParam(c)
	if !ok {
		return models.Actor{}, "", false
	}
	return actor, kind, true
}
