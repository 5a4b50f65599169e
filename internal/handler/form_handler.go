package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/response"
)

type formService interface {
	Open(actor models.Actor, kind models.RecordKind) (models.FormDraft, error)
	Get(actor models.Actor, id string) (models.FormDraft, error)
	SetFields(ctx context.Context, actor models.Actor, id string, fields models.Fields) (models.FormDraft, error)
	SetField(ctx context.Context, actor models.Actor, id, key string, value interface{}) (models.FormDraft, error)
	Cancel(actor models.Actor, id string) error
	Submit(actor models.Actor, id string) (<-chan service.DispatchResult, models.FormDraft, error)
}

// FormHandler drives the report entry forms.
type FormHandler struct {
	forms       formService
	waitTimeout time.Duration
}

// NewFormHandler constructs the handler.
func NewFormHandler(forms formService, waitTimeout time.Duration) *FormHandler {
	return &FormHandler{forms: forms, waitTimeout: waitTimeout}
}

// Open godoc
// @Summary Open a new report form
// @Description Generates the record id of the report
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.FormOpen true "Form kind"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forms [post]
func (h *FormHandler) Open(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.FormOpen
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "kind is required"))
		return
	}
	kind, known := models.ParseKind(string(req.Kind))
	if !known {
		response.Error(c, appErrors.Clone(appErrors.ErrUnknownKind, "unknown record kind "+string(req.Kind)))
		return
	}

	draft, err := h.forms.Open(actor, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// Get godoc
// @Summary Get an open form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	draft, err := h.forms.Get(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Update godoc
// @Summary Set form fields
// @Description Send either key/value or a fields map. Each touched field has its error cleared.
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param payload body dto.FormPatch true "Fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forms/{id} [patch]
func (h *FormHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.FormPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "invalid form payload"))
		return
	}

	var (
		draft models.FormDraft
		err   error
	)
	id := c.Param("id")
	switch {
	case strings.TrimSpace(req.Key) != "":
		draft, err = h.forms.SetField(c.Request.Context(), actor, id, req.Key, req.Value)
	case len(req.Fields) > 0:
		draft, err = h.forms.SetFields(c.Request.Context(), actor, id, req.Fields)
	default:
		err = appErrors.Clone(appErrors.ErrBadRequest, "key or fields is required")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Cancel godoc
// @Summary Discard an open form
// @Tags Forms
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /forms/{id} [delete]
func (h *FormHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.forms.Cancel(actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit a form
// @Description Invalid forms are answered with 422, the error of each field in meta.fields and meta.scroll_to_top
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param wait query bool false "Wait for the store to confirm (default true)"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /forms/{id}/submit [post]
func (h *FormHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	results, draft, err := h.forms.Submit(actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ack := dto.DispatchAck{Kind: draft.Record.Kind, RecordIDs: []string{draft.Record.RecordID}}
	respondDispatch(c, results, ack, h.waitTimeout)
}
