package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/dto"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

type recordStore interface {
	ListByKind(ctx context.Context, kind models.RecordKind) ([]models.Record, error)
	GetByID(ctx context.Context, kind models.RecordKind, id string) (*models.Record, error)
}

type recordDispatcher interface {
	DispatchSave(actor models.Actor, record models.Record) <-chan DispatchResult
	DispatchStatus(actor models.Actor, kind models.RecordKind, req models.BulkRequest, bulk bool) <-chan DispatchResult
}

type selectionTracker interface {
	SyncView(actor models.Actor, kind models.RecordKind, ids []string)
	Selected(actor models.Actor, kind models.RecordKind) map[string]bool
	Snapshot(actor models.Actor, kind models.RecordKind) (models.SelectionSnapshot, error)
}

// RecordServiceParams groups constructor dependencies.
type RecordServiceParams struct {
	Records    recordStore
	References referenceProvider
	Review     selectionTracker
	Dispatcher recordDispatcher
	Validator  *FormValidator
	Logger     *zap.Logger
}

// RecordService serves the record tables and applies edits and single status
// changes.
type RecordService struct {
	records    recordStore
	references referenceProvider
	review     selectionTracker
	dispatcher recordDispatcher
	validator  *FormValidator
	logger     *zap.Logger
}

// NewRecordService constructs the service.
func NewRecordService(params RecordServiceParams) *RecordService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validator := params.Validator
	if validator == nil {
		validator = NewFormValidator(nil)
	}
	return &RecordService{
		records:    params.Records,
		references: params.References,
		review:     params.Review,
		dispatcher: params.Dispatcher,
		validator:  validator,
		logger:     logger,
	}
}

func (s *RecordService) reference(ctx context.Context) models.ReferenceData {
	if s.references == nil {
		return models.ReferenceData{}
	}
	refs, err := s.references.Reference(ctx)
	if err != nil {
		s.logger.Warn("reference data unavailable, using record labels", zap.Error(err))
		return models.ReferenceData{}
	}
	return refs
}

// Query filters, searches and sorts the records of kind, newest first. The
// returned slice is the view the caller sees, before pagination.
func (s *RecordService) Query(ctx context.Context, kind models.RecordKind, query models.RecordQuery) ([]models.Record, models.ReferenceData, error) {
	if _, ok := models.ParseKind(string(kind)); !ok {
		return nil, models.ReferenceData{}, appErrors.Clone(appErrors.ErrUnknownKind, "")
	}
	records, err := s.records.ListByKind(ctx, kind)
	if err != nil {
		return nil, models.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}
	refs := s.reference(ctx)

	view := FilterRecords(records, query.Filter.Normalize())
	if query.Search != "" {
		view = SearchByMosqueName(view, query.Search, refs)
	}
	return SortNewestFirst(view), refs, nil
}

// List renders the table of kind for actor. Reviewers see their selection and
// have it pruned to the visible rows.
func (s *RecordService) List(ctx context.Context, actor models.Actor, kind models.RecordKind, query models.RecordQuery) (dto.RecordList, *models.Pagination, error) {
	view, refs, err := s.Query(ctx, kind, query)
	if err != nil {
		return dto.RecordList{}, nil, err
	}

	total := len(view)
	var pagination *models.Pagination
	if query.PageSize > 0 {
		page := query.Page
		if page < 1 {
			page = 1
		}
		start := total
		if page-1 <= total/query.PageSize {
			start = (page - 1) * query.PageSize
		}
		end := total
		if query.PageSize < total-start {
			end = start + query.PageSize
		}
		view = view[start:end]
		pagination = &models.Pagination{Page: page, PageSize: query.PageSize, TotalCount: total}
	}

	list := dto.RecordList{
		Kind:     kind,
		Title:    kind.Title(),
		Filter:   query.Filter.Normalize(),
		Search:   query.Search,
		Rows:     make([]dto.RecordRow, 0, len(view)),
		Total:    total,
		Statuses: models.FilterStatuses,
	}

	var selected map[string]bool
	if s.review != nil && actor.CanReview() {
		ids := make([]string, len(view))
		for i, r := range view {
			ids[i] = r.RecordID
		}
		s.review.SyncView(actor, kind, ids)
		selected = s.review.Selected(actor, kind)
		if snap, err := s.review.Snapshot(actor, kind); err == nil {
			list.Selection = &snap
		}
	}

	for _, r := range view {
		row := BuildRow(r, refs, actor)
		row.Selected = selected[r.RecordID]
		list.Rows = append(list.Rows, row)
	}
	return list, pagination, nil
}

// BuildRow resolves the display labels of one record.
func BuildRow(r models.Record, refs models.ReferenceData, actor models.Actor) dto.RecordRow {
	status := r.StatusOrDefault()
	row := dto.RecordRow{
		RecordID:   r.RecordID,
		Kind:       r.Kind,
		MosqueCode: r.MosqueCode,
		Mosque:     MosqueLabel(r, refs),
		DayCode:    r.CodeDay,
		Day:        DayLabel(r, refs),
		Status:     status,
		StatusTone: status.Tone(),
		CreatedAt:  r.CreatedAt,
		CreatedBy:  r.CreatedBy,
		CanEdit:    canEdit(actor, r),
		Action:     actionLabel(actor, r.Kind),
	}

	switch r.Kind {
	case models.KindFastEval:
		row.Evaluator = r.Fields.String(models.FieldEvaluator)
	case models.KindMaintenance:
		m := r.Maintenance()
		row.Maintenance = &m.MaintenanceCount
		row.Cleaning = &m.CleaningCount
	case models.KindAttendance:
		total := r.Attendance().Total()
		row.Worshippers = &total
	}
	return row
}

func actionLabel(actor models.Actor, kind models.RecordKind) string {
	switch {
	case actor.CanReview():
		return dto.ActionReview
	case kind == models.KindMaintenance:
		return dto.ActionEdit
	default:
		return dto.ActionEditReport
	}
}

func canEdit(actor models.Actor, r models.Record) bool {
	return actor.CanReview() || (actor.ID != "" && r.CreatedBy == actor.ID)
}

// Get returns one record with its labels.
func (s *RecordService) Get(ctx context.Context, actor models.Actor, kind models.RecordKind, id string) (dto.RecordDetail, error) {
	record, err := s.load(ctx, kind, id)
	if err != nil {
		return dto.RecordDetail{}, err
	}
	refs := s.reference(ctx)
	status := record.StatusOrDefault()
	return dto.RecordDetail{
		Record:     *record,
		Mosque:     MosqueLabel(*record, refs),
		Day:        DayLabel(*record, refs),
		Status:     status,
		StatusTone: status.Tone(),
		CanEdit:    canEdit(actor, *record),
		CanReview:  actor.CanReview(),
	}, nil
}

func (s *RecordService) load(ctx context.Context, kind models.RecordKind, id string) (*models.Record, error) {
	if _, ok := models.ParseKind(string(kind)); !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownKind, "")
	}
	record, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record, nil
}

// Edit merges fields into an existing record and dispatches the save. Only
// the record's author and reviewers may edit; the approval status is never
// changed by an edit.
func (s *RecordService) Edit(ctx context.Context, actor models.Actor, kind models.RecordKind, id string, fields models.Fields) (<-chan DispatchResult, models.Record, error) {
	current, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, models.Record{}, err
	}
	if !canEdit(actor, *current) {
		return nil, models.Record{}, appErrors.Clone(appErrors.ErrForbidden, "only the author or a reviewer may edit this record")
	}

	refs := s.reference(ctx)
	updated := current.Clone()
	for key, value := range fields {
		applyField(&updated, key, value, refs)
	}

	if errs := s.validator.Validate(kind, updated); !errs.Empty() {
		return nil, updated, &FormValidationError{Fields: errs}
	}

	s.logger.Info("record edit dispatched", zap.String("kind", string(kind)), zap.String("record_id", id), zap.String("user_id", actor.ID))
	return s.dispatcher.DispatchSave(actor, updated), updated, nil
}

// SetStatus changes the approval status of one record.
func (s *RecordService) SetStatus(ctx context.Context, actor models.Actor, kind models.RecordKind, id string, status models.ApprovalStatus) (<-chan DispatchResult, error) {
	if err := authorizeReview(actor); err != nil {
		return nil, err
	}
	if !status.ReviewTarget() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unsupported approval status "+string(status))
	}
	if _, err := s.load(ctx, kind, id); err != nil {
		return nil, err
	}
	req := models.BulkRequest{IDs: []string{id}, Status: status}
	return s.dispatcher.DispatchStatus(actor, kind, req, false), nil
}
