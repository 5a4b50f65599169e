package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

type recordStoreStub struct {
	records []models.Record
}

func (s *recordStoreStub) ListByKind(_ context.Context, kind models.RecordKind) ([]models.Record, error) {
	var out []models.Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *recordStoreStub) GetByID(_ context.Context, kind models.RecordKind, id string) (*models.Record, error) {
	for _, r := range s.records {
		if r.Kind == kind && r.RecordID == id {
			clone := r.Clone()
			return &clone, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
}

type recordDispatcherStub struct {
	saved    []models.Record
	statuses []models.BulkRequest
}

func (s *recordDispatcherStub) DispatchSave(_ models.Actor, record models.Record) <-chan DispatchResult {
	s.saved = append(s.saved, record)
	return closedResult(DispatchResult{Type: jobTypeSave, Kind: record.Kind, RecordIDs: []string{record.RecordID}, Affected: 1})
}

func (s *recordDispatcherStub) DispatchStatus(_ models.Actor, kind models.RecordKind, req models.BulkRequest, _ bool) <-chan DispatchResult {
	s.statuses = append(s.statuses, req)
	return closedResult(DispatchResult{Type: jobTypeStatus, Kind: kind, RecordIDs: req.IDs, Affected: int64(len(req.IDs))})
}

func closedResult(res DispatchResult) <-chan DispatchResult {
	ch := make(chan DispatchResult, 1)
	ch <- res
	close(ch)
	return ch
}

var fixtureRefs = models.ReferenceData{
	Mosques: []models.Mosque{{Code: "M1", Name: "جامع النور", SiteType: "جامع"}, {Code: "M2", Name: "مسجد الهدى", SiteType: "مسجد"}},
	Days:    []models.Day{{Code: "D1", Label: "اليوم الأول"}, {Code: "D2", Label: "اليوم الثاني"}},
}

func attendanceFixture() []models.Record {
	return []models.Record{
		{Kind: models.KindAttendance, RecordID: "ATT-1", MosqueCode: "M1", CodeDay: "D1", CreatedAt: "2025-03-01T10:00:00Z", CreatedBy: "eval-1",
			Fields: models.Fields{models.FieldMenCount: 40, models.FieldWomenCount: "12"}},
		{Kind: models.KindAttendance, RecordID: "ATT-2", MosqueCode: "M2", CodeDay: "D1", CreatedAt: "2025-03-02T10:00:00Z", CreatedBy: "eval-2",
			Status: models.StatusApprove, Fields: models.Fields{}},
		{Kind: models.KindAttendance, RecordID: "ATT-3", MosqueCode: "M9", CodeDay: "D2", CreatedAt: "2025-03-03T10:00:00Z", CreatedBy: "eval-1",
			Fields: models.Fields{}},
	}
}

func newRecordService(store *recordStoreStub, disp *recordDispatcherStub, review *ReviewService) *RecordService {
	params := RecordServiceParams{
		Records:    store,
		References: referenceStub{data: fixtureRefs},
		Dispatcher: disp,
	}
	if review != nil {
		params.Review = review
	}
	return NewRecordService(params)
}

func TestListBuildsRowsNewestFirst(t *testing.T) {
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, &recordDispatcherStub{}, nil)

	list, pagination, err := svc.List(context.Background(), evaluator, models.KindAttendance, models.RecordQuery{})
	require.NoError(t, err)
	assert.Nil(t, pagination)
	require.Len(t, list.Rows, 3)
	assert.Equal(t, []string{"ATT-3", "ATT-2", "ATT-1"}, []string{list.Rows[0].RecordID, list.Rows[1].RecordID, list.Rows[2].RecordID})

	first := list.Rows[2]
	assert.Equal(t, "جامع النور", first.Mosque)
	assert.Equal(t, "اليوم الأول", first.Day)
	assert.Equal(t, models.StatusPending, first.Status)
	require.NotNil(t, first.Worshippers)
	assert.Equal(t, 52, *first.Worshippers)
	assert.Equal(t, dto.ActionEditReport, first.Action)
	assert.True(t, first.CanEdit)
	assert.False(t, list.Rows[1].CanEdit)

	assert.Equal(t, models.UnknownLabel, list.Rows[0].Mosque)
	assert.Equal(t, models.ToneApproved, list.Rows[1].StatusTone)
	assert.Nil(t, list.Selection)
}

func TestListFiltersByStatusDefault(t *testing.T) {
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, &recordDispatcherStub{}, nil)

	list, _, err := svc.List(context.Background(), evaluator, models.KindAttendance, models.RecordQuery{
		Filter: models.FilterState{Day: "D1", Status: string(models.StatusPending)},
	})
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "ATT-1", list.Rows[0].RecordID)
}

func TestListPaginatesAndSyncsSelection(t *testing.T) {
	review := NewReviewService(&statusDispatcherStub{}, 0, nil)
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, &recordDispatcherStub{}, review)
	ctx := context.Background()

	_, _, err := svc.List(ctx, reviewer, models.KindAttendance, models.RecordQuery{})
	require.NoError(t, err)
	_, err = review.ToggleAll(reviewer, models.KindAttendance)
	require.NoError(t, err)

	list, pagination, err := svc.List(ctx, reviewer, models.KindAttendance, models.RecordQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Equal(t, 3, pagination.TotalCount)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "ATT-1", list.Rows[0].RecordID)
	assert.True(t, list.Rows[0].Selected)
	assert.Equal(t, dto.ActionReview, list.Rows[0].Action)
	require.NotNil(t, list.Selection)
	assert.Equal(t, []string{"ATT-1"}, list.Selection.Selected)
}

func TestListSearchesMaintenanceByMosqueName(t *testing.T) {
	records := []models.Record{
		{Kind: models.KindMaintenance, RecordID: "MNT-1", Fields: models.Fields{models.FieldMosqueName: "جامع النور", models.FieldMaintenanceCount: "3"}},
		{Kind: models.KindMaintenance, RecordID: "MNT-2", Fields: models.Fields{models.FieldMosqueName: "مسجد الهدى"}},
	}
	svc := newRecordService(&recordStoreStub{records: records}, &recordDispatcherStub{}, nil)

	list, _, err := svc.List(context.Background(), evaluator, models.KindMaintenance, models.RecordQuery{Search: "النور"})
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)
	require.NotNil(t, list.Rows[0].Maintenance)
	assert.Equal(t, 3, *list.Rows[0].Maintenance)
	assert.Equal(t, dto.ActionEdit, list.Rows[0].Action)
}

func TestListUnknownKind(t *testing.T) {
	svc := newRecordService(&recordStoreStub{}, &recordDispatcherStub{}, nil)
	_, _, err := svc.List(context.Background(), evaluator, models.RecordKind("payroll"), models.RecordQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrUnknownKind))
}

func TestEditByAuthorKeepsStatusAndCopiesLabels(t *testing.T) {
	records := attendanceFixture()
	records[0].Status = models.StatusReturned
	disp := &recordDispatcherStub{}
	svc := newRecordService(&recordStoreStub{records: records}, disp, nil)
	author := models.Actor{ID: "eval-1", Role: models.RoleEvaluator}

	ch, updated, err := svc.Edit(context.Background(), author, models.KindAttendance, "ATT-1", models.Fields{
		models.FieldMosqueCode: "M2",
		"الاعتماد":             string(models.StatusApprove),
		models.FieldMenCount:   55,
	})
	require.NoError(t, err)
	res := <-ch
	assert.True(t, res.OK())

	assert.Equal(t, "M2", updated.MosqueCode)
	assert.Equal(t, "مسجد الهدى", updated.Fields.String(models.FieldMosqueName))
	assert.Equal(t, models.StatusReturned, updated.Status)
	require.Len(t, disp.saved, 1)
	assert.Equal(t, 55, disp.saved[0].Fields.Int(models.FieldMenCount))
}

func TestEditRejectsStrangersAndInvalidForms(t *testing.T) {
	disp := &recordDispatcherStub{}
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, disp, nil)
	ctx := context.Background()

	_, _, err := svc.Edit(ctx, evaluator, models.KindAttendance, "ATT-2", models.Fields{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, _, err = svc.Edit(ctx, reviewer, models.KindAttendance, "ATT-2", models.Fields{models.FieldCodeDay: " ", models.FieldWomenCount: -1})
	var formErr *FormValidationError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, msgDayRequired, formErr.Fields[models.FieldCodeDay])
	assert.Equal(t, msgWholeNumber, formErr.Fields[models.FieldWomenCount])
	assert.Empty(t, disp.saved)

	_, _, err = svc.Edit(ctx, reviewer, models.KindAttendance, "ATT-404", models.Fields{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSetStatus(t *testing.T) {
	disp := &recordDispatcherStub{}
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, disp, nil)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, evaluator, models.KindAttendance, "ATT-1", models.StatusApprove)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.SetStatus(ctx, reviewer, models.KindAttendance, "ATT-1", models.ApprovalStatus("مؤجل"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidStatus))

	ch, err := svc.SetStatus(ctx, reviewer, models.KindAttendance, "ATT-1", models.StatusReturned)
	require.NoError(t, err)
	assert.True(t, (<-ch).OK())
	require.Len(t, disp.statuses, 1)
	assert.Equal(t, models.BulkRequest{IDs: []string{"ATT-1"}, Status: models.StatusReturned}, disp.statuses[0])

	ch, err = svc.SetStatus(ctx, reviewer, models.KindAttendance, "ATT-2", models.StatusPending)
	require.NoError(t, err)
	assert.True(t, (<-ch).OK())
	require.Len(t, disp.statuses, 2)
	assert.Equal(t, models.BulkRequest{IDs: []string{"ATT-2"}, Status: models.StatusPending}, disp.statuses[1])
}

func TestListClampsOutOfRangePages(t *testing.T) {
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, &recordDispatcherStub{}, nil)
	ctx := context.Background()

	for _, page := range []int{4, 1<<62 + 1, int(^uint(0) >> 1)} {
		var list dto.RecordList
		var pagination *models.Pagination
		var err error
		require.NotPanics(t, func() {
			list, pagination, err = svc.List(ctx, reviewer, models.KindAttendance, models.RecordQuery{Page: page, PageSize: 3})
		})
		require.NoError(t, err)
		assert.Empty(t, list.Rows)
		require.NotNil(t, pagination)
		assert.Equal(t, 3, pagination.TotalCount)
	}

	list, _, err := svc.List(ctx, reviewer, models.KindAttendance, models.RecordQuery{Page: 1, PageSize: int(^uint(0) >> 1)})
	require.NoError(t, err)
	assert.Len(t, list.Rows, 3)
}

func TestGetReportsPermissions(t *testing.T) {
	svc := newRecordService(&recordStoreStub{records: attendanceFixture()}, &recordDispatcherStub{}, nil)

	detail, err := svc.Get(context.Background(), evaluator, models.KindAttendance, "ATT-1")
	require.NoError(t, err)
	assert.False(t, detail.CanEdit)
	assert.False(t, detail.CanReview)
	assert.Equal(t, "جامع النور", detail.Mosque)
}
