package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestValidationEnvelope(t *testing.T) {
	c, rec := newContext()
	Validation(c, map[string]string{"mosque_code": "يجب اختيار المسجد"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Error *appErrors.Error `json:"error"`
		Meta  struct {
			Fields      map[string]string `json:"fields"`
			ScrollToTop bool              `json:"scroll_to_top"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.True(t, body.Meta.ScrollToTop)
	assert.Equal(t, "يجب اختيار المسجد", body.Meta.Fields["mosque_code"])
}

func TestErrorFallsBackToInternal(t *testing.T) {
	c, rec := newContext()
	Error(c, errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
