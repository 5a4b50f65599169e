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

type recordService interface {
	List(ctx context.Context, actor models.Actor, kind models.RecordKind, query models.RecordQuery) (dto.RecordList, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, kind models.RecordKind, id string) (dto.RecordDetail, error)
	Edit(ctx context.Context, actor models.Actor, kind models.RecordKind, id string, fields models.Fields) (<-chan service.DispatchResult, models.Record, error)
	SetStatus(ctx context.Context, actor models.Actor, kind models.RecordKind, id string, status models.ApprovalStatus) (<-chan service.DispatchResult, error)
}

type recordExporter interface {
	Records(ctx context.Context, kind models.RecordKind, query models.RecordQuery, format service.ExportFormat) (*service.ExportFile, error)
}

// RecordHandler serves the record tables of every report kind.
type RecordHandler struct {
	records     recordService
	exports     recordExporter
	waitTimeout time.Duration
}

// NewRecordHandler constructs the handler. waitTimeout bounds how long a
// write waits for the store when the caller asks to wait.
func NewRecordHandler(records recordService, exports recordExporter, waitTimeout time.Duration) *RecordHandler {
	return &RecordHandler{records: records, exports: exports, waitTimeout: waitTimeout}
}

// List godoc
// @Summary List records of a kind
// @Description Filtered by exact mosque, day and status, searched by mosque name and sorted newest first
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind" Enums(fast_eval, maintenance, attendance)
// @Param mosque query string false "Mosque code"
// @Param day query string false "Day code"
// @Param status query string false "Approval status"
// @Param q query string false "Mosque name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (0 returns every row)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{kind} [get]
func (h *RecordHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	list, pagination, err := h.records.List(c.Request.Context(), actor, kind, recordQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Get godoc
// @Summary Get one record
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{kind}/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	detail, err := h.records.Get(c.Request.Context(), actor, kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Edit godoc
// @Summary Edit a submitted report
// @Description Authors edit their own reports, reviewers any report. The approval status cannot be changed here.
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param id path string true "Record ID"
// @Param wait query bool false "Wait for the store to confirm (default true)"
// @Param payload body dto.RecordEdit true "Changed fields"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /records/{kind}/{id} [put]
func (h *RecordHandler) Edit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req dto.RecordEdit
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Fields) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "fields are required"))
		return
	}

	results, record, err := h.records.Edit(c.Request.Context(), actor, kind, c.Param("id"), req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDispatch(c, results, dto.DispatchAck{Kind: kind, RecordIDs: []string{record.RecordID}}, h.waitTimeout)
}

// SetStatus godoc
// @Summary Change the approval status of one record
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param id path string true "Record ID"
// @Param wait query bool false "Wait for the store to confirm (default true)"
// @Param payload body models.StatusChange true "New status"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /records/{kind}/{id}/status [patch]
func (h *RecordHandler) SetStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req models.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(string(req.Status)) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "status is required"))
		return
	}

	id := c.Param("id")
	results, err := h.records.SetStatus(c.Request.Context(), actor, kind, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDispatch(c, results, dto.DispatchAck{Kind: kind, RecordIDs: []string{id}, Status: string(req.Status)}, h.waitTimeout)
}

// Export godoc
// @Summary Export the filtered records of a kind
// @Tags Records
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param kind path string true "Record kind"
// @Param format query string false "csv, pdf or xlsx" Enums(csv, pdf, xlsx)
// @Param mosque query string false "Mosque code"
// @Param day query string false "Day code"
// @Param status query string false "Approval status"
// @Param q query string false "Mosque name search"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/records/{kind} [get]
func (h *RecordHandler) Export(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	query := recordQuery(c)
	query.Page, query.PageSize = 0, 0

	file, err := h.exports.Records(c.Request.Context(), kind, query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
