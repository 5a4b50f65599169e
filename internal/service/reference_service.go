package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/sheet"
)

// Worksheet and column names of the reference workbook.
const (
	SheetMosques = "mosques"
	SheetDays    = "days"

	ColumnMosqueCode = models.FieldMosqueCode
	ColumnMosqueName = models.FieldMosqueName
	ColumnSiteType   = models.FieldSiteType
	ColumnDayCode    = models.FieldCodeDay
	ColumnDayLabel   = "label"
)

const referenceCacheKey = "reference"

type referenceStore interface {
	Mosques(ctx context.Context) ([]models.Mosque, error)
	Days(ctx context.Context) ([]models.Day, error)
	Upsert(ctx context.Context, data models.ReferenceData) error
}

// ReferenceService serves mosque and day lookups and loads them from workbooks.
type ReferenceService struct {
	store  referenceStore
	cache  *CacheService
	audit  auditWriter
	logger *zap.Logger
}

// NewReferenceService constructs the service. cache and audit may be nil.
func NewReferenceService(store referenceStore, cache *CacheService, audit auditWriter, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{store: store, cache: cache, audit: audit, logger: logger}
}

// Reference returns all mosques and days.
func (s *ReferenceService) Reference(ctx context.Context) (models.ReferenceData, error) {
	var data models.ReferenceData
	if hit, _ := s.cache.Get(ctx, referenceCacheKey, &data); hit {
		return data, nil
	}

	mosques, err := s.store.Mosques(ctx)
	if err != nil {
		return models.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mosques")
	}
	days, err := s.store.Days(ctx)
	if err != nil {
		return models.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load days")
	}
	data = models.ReferenceData{Mosques: mosques, Days: days}
	_ = s.cache.Set(ctx, referenceCacheKey, data, 0)
	return data, nil
}

// Import reads the mosques and days sheets and upserts them.
func (s *ReferenceService) Import(ctx context.Context, actor models.Actor, r io.Reader) (models.ReferenceData, error) {
	tables, err := sheet.Read(r, SheetMosques, SheetDays)
	if err != nil {
		return models.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid reference workbook")
	}
	data, err := ParseReference(tables[SheetMosques], tables[SheetDays])
	if err != nil {
		return models.ReferenceData{}, err
	}

	if err := s.store.Upsert(ctx, data); err != nil {
		return models.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reference data")
	}

	// Labels feed cached results notes as well.
	_ = s.cache.Invalidate(ctx, referenceCacheKey)
	_ = s.cache.Invalidate(ctx, resultsCachePrefix+"*")

	s.logger.Info("reference data imported", zap.Int("mosques", len(data.Mosques)), zap.Int("days", len(data.Days)))
	s.writeAudit(ctx, actor, data)
	return data, nil
}

// ParseReference converts sheet tables to reference rows. Rows without a code
// are rejected; a repeated code keeps its last row in the first row's position.
func ParseReference(mosques, days sheet.Table) (models.ReferenceData, error) {
	var data models.ReferenceData
	mosqueAt := make(map[string]int)
	for i, row := range mosques.Rows {
		code := row[ColumnMosqueCode]
		if code == "" {
			return models.ReferenceData{}, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("mosques row %d has no %s", i+2, ColumnMosqueCode))
		}
		m := models.Mosque{Code: code, Name: row[ColumnMosqueName], SiteType: row[ColumnSiteType]}
		if at, dup := mosqueAt[code]; dup {
			data.Mosques[at] = m
			continue
		}
		mosqueAt[code] = len(data.Mosques)
		data.Mosques = append(data.Mosques, m)
	}

	dayAt := make(map[string]int)
	for i, row := range days.Rows {
		code := row[ColumnDayCode]
		if code == "" {
			return models.ReferenceData{}, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("days row %d has no %s", i+2, ColumnDayCode))
		}
		d := models.Day{Code: code, Label: row[ColumnDayLabel]}
		if at, dup := dayAt[code]; dup {
			data.Days[at] = d
			continue
		}
		dayAt[code] = len(data.Days)
		data.Days = append(data.Days, d)
	}
	return data, nil
}

// Export writes the current reference data as a workbook Import accepts.
func (s *ReferenceService) Export(ctx context.Context, w io.Writer) error {
	data, err := s.Reference(ctx)
	if err != nil {
		return err
	}
	mosques := sheet.Table{Name: SheetMosques, Headers: []string{ColumnMosqueCode, ColumnMosqueName, ColumnSiteType}}
	for _, m := range data.Mosques {
		mosques.Rows = append(mosques.Rows, map[string]string{
			ColumnMosqueCode: m.Code,
			ColumnMosqueName: m.Name,
			ColumnSiteType:   m.SiteType,
		})
	}
	days := sheet.Table{Name: SheetDays, Headers: []string{ColumnDayCode, ColumnDayLabel}}
	for _, d := range data.Days {
		days.Rows = append(days.Rows, map[string]string{ColumnDayCode: d.Code, ColumnDayLabel: d.Label})
	}
	return sheet.Write(w, mosques, days)
}

func (s *ReferenceService) writeAudit(ctx context.Context, actor models.Actor, data models.ReferenceData) {
	if s.audit == nil {
		return
	}
	summary, _ := json.Marshal(map[string]int{"mosques": len(data.Mosques), "days": len(data.Days)})
	entry := &models.AuditLog{
		Action:    models.AuditActionRefImport,
		Resource:  "reference",
		NewValues: summary,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.ID != "" {
		id := actor.ID
		entry.UserID = &id
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit log failed", zap.String("action", entry.Action), zap.Error(err))
	}
}
