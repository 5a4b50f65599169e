package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/sheet"
)

type referenceStoreStub struct {
	data     models.ReferenceData
	upserted []models.ReferenceData
	reads    int
}

func (s *referenceStoreStub) Mosques(context.Context) ([]models.Mosque, error) {
	s.reads++
	return s.data.Mosques, nil
}

func (s *referenceStoreStub) Days(context.Context) ([]models.Day, error) {
	return s.data.Days, nil
}

func (s *referenceStoreStub) Upsert(_ context.Context, data models.ReferenceData) error {
	s.upserted = append(s.upserted, data)
	s.data = data
	return nil
}

func workbook(t *testing.T, mosques, days sheet.Table) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf, mosques, days))
	return &buf
}

func TestReferenceImportRoundTrip(t *testing.T) {
	store := &referenceStoreStub{}
	audit := &auditStub{}
	svc := NewReferenceService(store, nil, audit, nil)

	mosques := sheet.Table{Name: "Mosques", Headers: []string{ColumnMosqueCode, ColumnMosqueName, ColumnSiteType}, Rows: []map[string]string{
		{ColumnMosqueCode: "M1", ColumnMosqueName: "جامع النور", ColumnSiteType: "جامع"},
		{ColumnMosqueCode: "M2", ColumnMosqueName: "مسجد الهدى", ColumnSiteType: "مسجد"},
	}}
	days := sheet.Table{Name: "Days", Headers: []string{ColumnDayCode, ColumnDayLabel}, Rows: []map[string]string{
		{ColumnDayCode: "D1", ColumnDayLabel: "اليوم الأول"},
	}}

	data, err := svc.Import(context.Background(), models.Actor{ID: "admin"}, workbook(t, mosques, days))
	require.NoError(t, err)
	require.Len(t, data.Mosques, 2)
	assert.Equal(t, "مسجد الهدى", data.Mosques[1].Name)
	assert.Equal(t, []models.Day{{Code: "D1", Label: "اليوم الأول"}}, data.Days)
	require.Len(t, store.upserted, 1)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRefImport, audit.logs[0].Action)

	var out bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &out))
	tables, err := sheet.Read(&out, SheetMosques, SheetDays)
	require.NoError(t, err)
	assert.Len(t, tables[SheetMosques].Rows, 2)
	assert.Equal(t, "D1", tables[SheetDays].Rows[0][ColumnDayCode])
}

func TestParseReferenceRejectsMissingCode(t *testing.T) {
	mosques := sheet.Table{Rows: []map[string]string{{ColumnMosqueName: "بلا رمز"}}}
	_, err := ParseReference(mosques, sheet.Table{})
	assert.True(t, errors.Is(err, appErrors.ErrBadRequest))
}

func TestParseReferenceLastDuplicateWins(t *testing.T) {
	mosques := sheet.Table{Rows: []map[string]string{
		{ColumnMosqueCode: "M1", ColumnMosqueName: "قديم"},
		{ColumnMosqueCode: "M2", ColumnMosqueName: "ثاني"},
		{ColumnMosqueCode: "M1", ColumnMosqueName: "جديد"},
	}}
	data, err := ParseReference(mosques, sheet.Table{})
	require.NoError(t, err)
	require.Len(t, data.Mosques, 2)
	assert.Equal(t, "جديد", data.Mosques[0].Name)
}

func TestReferenceImportRejectsBadWorkbook(t *testing.T) {
	svc := NewReferenceService(&referenceStoreStub{}, nil, nil, nil)
	_, err := svc.Import(context.Background(), models.Actor{}, bytes.NewBufferString("not a workbook"))
	assert.True(t, errors.Is(err, appErrors.ErrBadRequest))
}

func TestReferenceIsCached(t *testing.T) {
	store := &referenceStoreStub{data: models.ReferenceData{Mosques: []models.Mosque{{Code: "M1"}}}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewReferenceService(store, cache, nil, nil)

	for i := 0; i < 3; i++ {
		data, err := svc.Reference(context.Background())
		require.NoError(t, err)
		assert.Len(t, data.Mosques, 1)
	}
	assert.Equal(t, 1, store.reads)
}
