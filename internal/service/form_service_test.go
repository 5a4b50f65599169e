package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/recordid"
)

func newFormService(disp *recordDispatcherStub, clock time.Time) *FormService {
	svc := NewFormService(FormServiceParams{
		IDs:        recordid.NewWithClock(func() time.Time { return clock }),
		References: referenceStub{data: fixtureRefs},
		Dispatcher: disp,
		TTL:        time.Hour,
	})
	svc.now = func() time.Time { return clock }
	return svc
}

func TestFormOpenAssignsPrefixedID(t *testing.T) {
	clock := time.UnixMilli(1700000000000)
	svc := newFormService(&recordDispatcherStub{}, clock)

	first, err := svc.Open(evaluator, models.KindFastEval)
	require.NoError(t, err)
	second, err := svc.Open(evaluator, models.KindMaintenance)
	require.NoError(t, err)

	assert.Equal(t, "FEV-1700000000000", first.Record.RecordID)
	assert.Equal(t, "MNT-1700000000001", second.Record.RecordID)
	assert.Equal(t, evaluator.ID, first.Record.CreatedBy)

	_, err = svc.Open(evaluator, models.RecordKind("unknown"))
	assert.True(t, errors.Is(err, appErrors.ErrUnknownKind))
}

func TestFormSubmitInvalidKeepsDraftAndSkipsDispatch(t *testing.T) {
	disp := &recordDispatcherStub{}
	svc := newFormService(disp, time.UnixMilli(1700000000000))
	ctx := context.Background()

	draft, err := svc.Open(evaluator, models.KindFastEval)
	require.NoError(t, err)

	ch, out, err := svc.Submit(evaluator, draft.Record.RecordID)
	assert.Nil(t, ch)
	var formErr *FormValidationError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, msgMosqueRequired, out.Errors[models.FieldMosqueCode])
	assert.Equal(t, msgEvaluatorRequired, out.Errors[models.FieldEvaluator])
	assert.Empty(t, disp.saved)

	updated, err := svc.SetField(ctx, evaluator, draft.Record.RecordID, models.FieldMosqueCode, "M1")
	require.NoError(t, err)
	assert.NotContains(t, updated.Errors, models.FieldMosqueCode)
	assert.Contains(t, updated.Errors, models.FieldEvaluator)
	assert.Equal(t, "جامع النور", updated.Record.Fields.String(models.FieldMosqueName))
	assert.Equal(t, "جامع", updated.Record.Fields.String(models.FieldSiteType))
}

func TestFormSubmitValidDispatchesAndCloses(t *testing.T) {
	disp := &recordDispatcherStub{}
	clock := time.Date(2025, 3, 5, 18, 30, 0, 0, time.UTC)
	svc := newFormService(disp, clock)
	ctx := context.Background()

	draft, err := svc.Open(evaluator, models.KindAttendance)
	require.NoError(t, err)
	_, err = svc.SetFields(ctx, evaluator, draft.Record.RecordID, models.Fields{
		models.FieldMosqueCode: "M2",
		models.FieldCodeDay:    "D2",
		models.FieldMenCount:   "30",
	})
	require.NoError(t, err)

	ch, out, err := svc.Submit(evaluator, draft.Record.RecordID)
	require.NoError(t, err)
	assert.True(t, (<-ch).OK())
	assert.Equal(t, "اليوم الثاني", out.Record.Fields.String(models.FieldDayLabel))
	assert.Equal(t, "2025-03-05T18:30:00.000Z", out.Record.CreatedAt)
	require.Len(t, disp.saved, 1)
	assert.Equal(t, draft.Record.RecordID, disp.saved[0].RecordID)

	_, err = svc.Get(evaluator, draft.Record.RecordID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestFormRejectsProtectedKeysAndForeignOwners(t *testing.T) {
	svc := newFormService(&recordDispatcherStub{}, time.UnixMilli(1700000000000))
	ctx := context.Background()

	draft, err := svc.Open(evaluator, models.KindFastEval)
	require.NoError(t, err)

	_, err = svc.SetField(ctx, evaluator, draft.Record.RecordID, "الاعتماد", string(models.StatusApprove))
	assert.True(t, errors.Is(err, appErrors.ErrBadRequest))

	_, err = svc.Get(reviewer, draft.Record.RecordID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.Cancel(evaluator, draft.Record.RecordID))
	assert.Error(t, svc.Cancel(evaluator, draft.Record.RecordID))
}

func TestFormDraftsExpire(t *testing.T) {
	clock := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)
	svc := newFormService(&recordDispatcherStub{}, clock)

	draft, err := svc.Open(evaluator, models.KindMaintenance)
	require.NoError(t, err)

	svc.now = func() time.Time { return clock.Add(2 * time.Hour) }
	_, err = svc.Get(evaluator, draft.Record.RecordID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
