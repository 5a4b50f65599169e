package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

type fakeFormSrv struct {
	draft     models.FormDraft
	setKey    string
	setFields models.Fields
	cancelled string
	submitErr error
}

func (f *fakeFormSrv) Open(actor models.Actor, kind models.RecordKind) (models.FormDraft, error) {
	f.draft = models.FormDraft{Record: models.Record{Kind: kind, RecordID: kind.Prefix() + "-1700000000000", CreatedBy: actor.ID}}
	return f.draft, nil
}

func (f *fakeFormSrv) Get(_ models.Actor, id string) (models.FormDraft, error) {
	if id != f.draft.Record.RecordID {
		return models.FormDraft{}, appErrors.Clone(appErrors.ErrNotFound, "form not found")
	}
	return f.draft, nil
}

func (f *fakeFormSrv) SetFields(_ context.Context, _ models.Actor, _ string, fields models.Fields) (models.FormDraft, error) {
	f.setFields = fields
	return f.draft, nil
}

func (f *fakeFormSrv) SetField(_ context.Context, _ models.Actor, _ string, key string, _ interface{}) (models.FormDraft, error) {
	f.setKey = key
	return f.draft, nil
}

func (f *fakeFormSrv) Cancel(_ models.Actor, id string) error {
	f.cancelled = id
	return nil
}

func (f *fakeFormSrv) Submit(_ models.Actor, id string) (<-chan service.DispatchResult, models.FormDraft, error) {
	if f.submitErr != nil {
		return nil, f.draft, f.submitErr
	}
	return resultChan(service.DispatchResult{JobID: "job-save", Kind: f.draft.Record.Kind, RecordIDs: []string{id}, Affected: 1}), f.draft, nil
}

func withID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}

func TestFormHandlerOpen(t *testing.T) {
	srv := &fakeFormSrv{}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodPost, "/forms", dto.FormOpen{Kind: models.KindFastEval}, evaluatorClaims)

	h.Open(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	record := decode(t, rec).Data["record"].(map[string]interface{})
	assert.Equal(t, "FEV-1700000000000", record["record_id"])
	assert.Equal(t, "eval-1", record["created_by"])
}

func TestFormHandlerOpenUnknownKind(t *testing.T) {
	h := NewFormHandler(&fakeFormSrv{}, time.Second)
	c, rec := newContext(http.MethodPost, "/forms", dto.FormOpen{Kind: "prayers"}, evaluatorClaims)

	h.Open(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormHandlerUpdateSingleField(t *testing.T) {
	srv := &fakeFormSrv{}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodPatch, "/forms/FEV-1", dto.FormPatch{Key: "mosque_code", Value: "M1"}, evaluatorClaims)
	withID(c, "FEV-1")

	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mosque_code", srv.setKey)
	assert.Nil(t, srv.setFields)
}

func TestFormHandlerUpdateFieldMap(t *testing.T) {
	srv := &fakeFormSrv{}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodPatch, "/forms/FEV-1", dto.FormPatch{Fields: models.Fields{"ملاحظات_عامة": "جيد"}}, evaluatorClaims)
	withID(c, "FEV-1")

	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "جيد", srv.setFields["ملاحظات_عامة"])
}

func TestFormHandlerUpdateEmpty(t *testing.T) {
	h := NewFormHandler(&fakeFormSrv{}, time.Second)
	c, rec := newContext(http.MethodPatch, "/forms/FEV-1", map[string]string{}, evaluatorClaims)
	withID(c, "FEV-1")

	h.Update(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormHandlerGetOtherUsersDraft(t *testing.T) {
	srv := &fakeFormSrv{draft: models.FormDraft{Record: models.Record{RecordID: "FEV-1"}}}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodGet, "/forms/FEV-2", nil, evaluatorClaims)
	withID(c, "FEV-2")

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormHandlerCancel(t *testing.T) {
	srv := &fakeFormSrv{}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodDelete, "/forms/FEV-1", nil, evaluatorClaims)
	withID(c, "FEV-1")

	h.Cancel(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "FEV-1", srv.cancelled)
}

func TestFormHandlerSubmitInvalid(t *testing.T) {
	srv := &fakeFormSrv{submitErr: &service.FormValidationError{Fields: models.FormErrors{
		"mosque_code":  "يجب اختيار المسجد",
		"الاسم_الكريم": "يجب إدخال اسم المقيّم",
	}}}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodPost, "/forms/FEV-1/submit", nil, evaluatorClaims)
	withID(c, "FEV-1")

	h.Submit(c)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["scroll_to_top"])
	assert.Len(t, envelope.Meta["fields"], 2)
}

func TestFormHandlerSubmitAccepted(t *testing.T) {
	srv := &fakeFormSrv{draft: models.FormDraft{Record: models.Record{Kind: models.KindAttendance, RecordID: "ATT-1"}}}
	h := NewFormHandler(srv, time.Second)
	c, rec := newContext(http.MethodPost, "/forms/ATT-1/submit?wait=false", nil, evaluatorClaims)
	withID(c, "ATT-1")

	h.Submit(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, "attendance", envelope.Data["kind"])
	assert.Equal(t, []interface{}{"ATT-1"}, envelope.Data["record_ids"])
}
