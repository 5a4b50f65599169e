package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/export"
)

// ExportFormat is a downloadable file type.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
)

var contentTypes = map[ExportFormat]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ParseExportFormat validates a format name; empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return FormatCSV, nil
	}
	if _, ok := contentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

// Column headers shared by the record exports.
const (
	colRecordID  = "رقم السجل"
	colMosque    = "المسجد"
	colSiteType  = "نوع الموقع"
	colDay       = "اليوم"
	colStatus    = "الحالة"
	colCreatedAt = "تاريخ الإنشاء"
	colEvaluator = "المقيّم"
	colNotes     = "ملاحظات"
	colDate      = "التاريخ"
	colRepairs   = "أعمال صيانة"
	colCleaning  = "أعمال نظافة"
	colMen       = "رجال"
	colWomen     = "نساء"
	colTotal     = "الإجمالي"
	colCriterion = "المعيار"
	colScore     = "المتوسط"
	colCount     = "عدد التقييمات"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type recordQuerier interface {
	Query(ctx context.Context, kind models.RecordKind, query models.RecordQuery) ([]models.Record, models.ReferenceData, error)
}

type evaluationsProvider interface {
	Evaluations(ctx context.Context, filter models.FilterState) (models.EvaluationResults, bool, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders record tables and evaluation results to files.
type ExportService struct {
	records   recordQuerier
	results   evaluationsProvider
	renderers map[ExportFormat]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. pdfFont is the TrueType font
// used for Arabic PDF output and may be empty.
func NewExportService(records recordQuerier, results evaluationsProvider, pdfFont string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		records: records,
		results: results,
		renderers: map[ExportFormat]renderer{
			FormatCSV:  export.NewCSVExporter(),
			FormatPDF:  export.NewPDFExporter(pdfFont),
			FormatXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Records exports the filtered table of kind, newest first.
func (s *ExportService) Records(ctx context.Context, kind models.RecordKind, query models.RecordQuery, format ExportFormat) (*ExportFile, error) {
	view, refs, err := s.records.Query(ctx, kind, query)
	if err != nil {
		return nil, err
	}
	return s.render(RecordDataset(kind, view, refs), string(kind), format)
}

// Evaluations exports the per-criterion averages of the results screen.
func (s *ExportService) Evaluations(ctx context.Context, filter models.FilterState, format ExportFormat) (*ExportFile, error) {
	results, _, err := s.results.Evaluations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.render(ResultsDataset(results), "results", format)
}

func (s *ExportService) render(data export.Dataset, name string, format ExportFormat) (*ExportFile, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
	payload, err := r.Render(data)
	if err != nil {
		s.logger.Error("export render failed", zap.String("format", string(format)), zap.String("name", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	timestamp := s.now().UTC().Format("20060102_150405")
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), timestamp, format),
		ContentType: contentTypes[format],
		Data:        payload,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// RecordDataset lays out records of kind as an export table.
func RecordDataset(kind models.RecordKind, records []models.Record, refs models.ReferenceData) export.Dataset {
	data := export.Dataset{Title: kind.Title()}
	switch kind {
	case models.KindFastEval:
		data.Headers = []string{colRecordID, colMosque, colSiteType, colEvaluator}
		for _, c := range models.MealCriteria {
			data.Headers = append(data.Headers, c.Label)
		}
		data.Headers = append(data.Headers, colNotes, colStatus, colCreatedAt)
	case models.KindMaintenance:
		data.Headers = []string{colRecordID, colMosque, colDate, colRepairs, colCleaning, colNotes, colStatus, colCreatedAt}
	default:
		data.Headers = []string{colRecordID, colMosque, colDay, colMen, colWomen, colTotal, colStatus, colCreatedAt}
	}

	for _, r := range records {
		row := map[string]string{
			colRecordID:  r.RecordID,
			colMosque:    MosqueLabel(r, refs),
			colStatus:    string(r.StatusOrDefault()),
			colCreatedAt: r.CreatedAt,
		}
		switch kind {
		case models.KindFastEval:
			ev := r.Evaluation()
			row[colSiteType] = ev.SiteType
			row[colEvaluator] = ev.Evaluator
			row[colNotes] = ev.Notes
			for _, c := range models.MealCriteria {
				if rating, ok := ev.Ratings[c.Key]; ok {
					row[c.Label] = strconv.Itoa(rating)
				}
			}
		case models.KindMaintenance:
			m := r.Maintenance()
			row[colDate] = m.Date
			row[colRepairs] = strconv.Itoa(m.MaintenanceCount)
			row[colCleaning] = strconv.Itoa(m.CleaningCount)
			row[colNotes] = m.Notes
		default:
			a := r.Attendance()
			row[colDay] = DayLabel(r, refs)
			row[colMen] = strconv.Itoa(a.Men)
			row[colWomen] = strconv.Itoa(a.Women)
			row[colTotal] = strconv.Itoa(a.Total())
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// ResultsDataset lays out per-criterion averages followed by the overall mean.
func ResultsDataset(results models.EvaluationResults) export.Dataset {
	data := export.Dataset{
		Title:   "نتائج " + models.KindFastEval.Title(),
		Headers: []string{colCriterion, colScore, colCount},
	}
	for _, c := range results.Criteria {
		data.Rows = append(data.Rows, map[string]string{
			colCriterion: c.Label,
			colScore:     strconv.FormatFloat(c.Score, 'f', 2, 64),
			colCount:     strconv.Itoa(c.Count),
		})
	}
	data.Rows = append(data.Rows, map[string]string{
		colCriterion: "المتوسط العام",
		colScore:     strconv.FormatFloat(results.Overall, 'f', 2, 64),
		colCount:     strconv.Itoa(results.RecordCount),
	})
	return data
}
