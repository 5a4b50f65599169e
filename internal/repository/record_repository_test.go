package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

var recordRowColumns = []string{"kind", "record_id", "mosque_code", "code_day", "status", "created_at", "created_by", "payload"}

func TestRecordRepositoryListByKind(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	rows := sqlmock.NewRows(recordRowColumns).
		AddRow("fast_eval", "FEV-1", "M1", "", "", "2024-03-11T19:00:00Z", "u1", []byte(`{"الرز":4,"الاسم_الكريم":"علي"}`)).
		AddRow("fast_eval", "FEV-2", "M2", "", "يعتمد", "", "u2", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM field_records WHERE kind = $1")).
		WithArgs(models.KindFastEval).
		WillReturnRows(rows)

	records, err := repo.ListByKind(context.Background(), models.KindFastEval)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.DefaultStatus, records[0].StatusOrDefault())
	assert.Equal(t, "علي", records[0].Evaluation().Evaluator)
	assert.Equal(t, models.StatusApprove, records[1].Status)
	assert.NotNil(t, records[1].Fields)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind = $1 AND record_id = $2")).
		WithArgs(models.KindMaintenance, "MNT-9").
		WillReturnRows(sqlmock.NewRows(recordRowColumns))

	_, err := repo.GetByID(context.Background(), models.KindMaintenance, "MNT-9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositorySaveUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO field_records")).
		WithArgs(models.KindAttendance, "ATT-1", "M1", "D1", models.ApprovalStatus(""), "2024-03-11T19:00:00Z", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), models.Record{
		Kind: models.KindAttendance, RecordID: "ATT-1", MosqueCode: "M1", CodeDay: "D1",
		CreatedAt: "2024-03-11T19:00:00Z", CreatedBy: "u1",
		Fields: models.Fields{models.FieldMenCount: 10},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositorySaveRejectsKindClash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO field_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), models.Record{Kind: models.KindAttendance, RecordID: "FEV-1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestRecordRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	ids := []string{"ATT-1", "ATT-2"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE field_records SET status = $1")).
		WithArgs(models.StatusApprove, models.KindAttendance, pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateStatus(context.Background(), models.KindAttendance, ids, models.StatusApprove)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.UpdateStatus(context.Background(), models.KindAttendance, nil, models.StatusApprove)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
