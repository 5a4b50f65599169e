package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/masjid-field-reports/internal/middleware"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/response"
)

type resultsService interface {
	Evaluations(ctx context.Context, filter models.FilterState) (models.EvaluationResults, bool, error)
}

type resultsExporter interface {
	Evaluations(ctx context.Context, filter models.FilterState, format service.ExportFormat) (*service.ExportFile, error)
}

// ResultsHandler serves the evaluation results dashboard.
type ResultsHandler struct {
	results resultsService
	exports resultsExporter
}

// NewResultsHandler constructs the handler.
func NewResultsHandler(results resultsService, exports resultsExporter) *ResultsHandler {
	return &ResultsHandler{results: results, exports: exports}
}

// Evaluations godoc
// @Summary Evaluation averages
// @Description Mean of each meal criterion over ratings greater than zero, the overall mean of non-zero criteria and the notes left by evaluators
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param mosque query string false "Mosque code, or all"
// @Param day query string false "Day code"
// @Param status query string false "Approval status"
// @Success 200 {object} response.Envelope
// @Router /results/evaluations [get]
func (h *ResultsHandler) Evaluations(c *gin.Context) {
	if h.results == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var filter models.FilterState
	_ = c.ShouldBindQuery(&filter)

	res, cacheHit, err := h.results.Evaluations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the evaluation averages
// @Tags Results
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param mosque query string false "Mosque code, or all"
// @Param format query string false "csv, pdf or xlsx" Enums(csv, pdf, xlsx)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/evaluations [get]
func (h *ResultsHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter models.FilterState
	_ = c.ShouldBindQuery(&filter)

	file, err := h.exports.Evaluations(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
