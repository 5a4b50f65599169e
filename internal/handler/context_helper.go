package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/middleware"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/response"
)

const defaultWaitTimeout = 10 * time.Second

// actorFromContext builds the service actor from the JWT claims. ok is false
// when the request carries no claims; the error has been written already.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return models.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, true
}

func kindParam(c *gin.Context) (models.RecordKind, bool) {
	kind, ok := models.ParseKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnknownKind, "unknown record kind "+strconv.Quote(c.Param("kind"))))
		return "", false
	}
	return kind, true
}

// respondError renders form validation failures as 422 with the field map and
// everything else through the common error envelope.
func respondError(c *gin.Context, err error) {
	var formErr *service.FormValidationError
	if errors.As(err, &formErr) {
		response.Validation(c, formErr.Fields)
		return
	}
	response.Error(c, err)
}

func waitRequested(c *gin.Context) bool {
	raw := c.Query("wait")
	if raw == "" {
		return true
	}
	wait, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return wait
}

// respondDispatch answers a dispatched write. With wait (the default) the
// handler blocks until the store confirms or the timeout passes; otherwise it
// returns 202 straight away.
func respondDispatch(c *gin.Context, results <-chan service.DispatchResult, ack dto.DispatchAck, timeout time.Duration) {
	if !waitRequested(c) {
		response.Accepted(c, ack)
		return
	}
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	res, err := service.Await(ctx, results)
	if err != nil {
		response.Error(c, err)
		return
	}
	ack.JobID = res.JobID
	ack.Affected = res.Affected
	if len(res.RecordIDs) > 0 {
		ack.RecordIDs = res.RecordIDs
	}
	ack.Confirmed = true
	response.JSON(c, http.StatusOK, ack, nil)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func recordQuery(c *gin.Context) models.RecordQuery {
	var filter models.FilterState
	_ = c.ShouldBindQuery(&filter)
	return models.RecordQuery{
		Filter:   filter,
		Search:   strings.TrimSpace(c.Query("q")),
		Page:     cast.ToInt(c.Query("page")),
		PageSize: cast.ToInt(c.Query("page_size")),
	}
}
