package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/recordid"
)

// CreatedAtLayout is how form submission times are stored.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type saveDispatcher interface {
	DispatchSave(actor models.Actor, record models.Record) <-chan DispatchResult
}

// FormServiceParams groups constructor dependencies.
type FormServiceParams struct {
	IDs        *recordid.Generator
	References referenceProvider
	Dispatcher saveDispatcher
	Validator  *FormValidator
	TTL        time.Duration
	Logger     *zap.Logger
}

// FormService holds open report forms until they are submitted or cancelled.
type FormService struct {
	ids        *recordid.Generator
	references referenceProvider
	dispatcher saveDispatcher
	validator  *FormValidator
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	drafts map[string]*models.FormDraft
}

// NewFormService constructs the service.
func NewFormService(params FormServiceParams) *FormService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := params.IDs
	if ids == nil {
		ids = recordid.New()
	}
	validator := params.Validator
	if validator == nil {
		validator = NewFormValidator(nil)
	}
	return &FormService{
		ids:        ids,
		references: params.References,
		dispatcher: params.Dispatcher,
		validator:  validator,
		ttl:        params.TTL,
		logger:     logger,
		now:        time.Now,
		drafts:     make(map[string]*models.FormDraft),
	}
}

func copyDraft(d *models.FormDraft) models.FormDraft {
	out := *d
	out.Record = d.Record.Clone()
	out.Errors = make(models.FormErrors, len(d.Errors))
	for k, v := range d.Errors {
		out.Errors[k] = v
	}
	return out
}

// sweep drops drafts idle for longer than ttl. Callers hold mu.
func (s *FormService) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, d := range s.drafts {
		if now.Sub(d.UpdatedAt) > s.ttl {
			delete(s.drafts, id)
		}
	}
}

// draft returns the caller's draft. Drafts of other users are reported as
// missing. Callers hold mu.
func (s *FormService) draft(actor models.Actor, id string) (*models.FormDraft, error) {
	s.sweep(s.now())
	d, ok := s.drafts[id]
	if !ok || d.Owner != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
	}
	return d, nil
}

// Open starts a new form of kind. The record id is fixed here.
func (s *FormService) Open(actor models.Actor, kind models.RecordKind) (models.FormDraft, error) {
	if _, ok := models.ParseKind(string(kind)); !ok {
		return models.FormDraft{}, appErrors.Clone(appErrors.ErrUnknownKind, "")
	}
	now := s.now()
	d := &models.FormDraft{
		Record: models.Record{
			Kind:      kind,
			RecordID:  s.ids.Next(kind.Prefix()),
			CreatedBy: actor.ID,
			Fields:    models.Fields{},
		},
		Errors:    models.FormErrors{},
		Owner:     actor.ID,
		OpenedAt:  now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sweep(now)
	s.drafts[d.Record.RecordID] = d
	s.mu.Unlock()

	s.logger.Debug("form opened", zap.String("kind", string(kind)), zap.String("record_id", d.Record.RecordID))
	return copyDraft(d), nil
}

// Get returns the caller's draft.
func (s *FormService) Get(actor models.Actor, id string) (models.FormDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.draft(actor, id)
	if err != nil {
		return models.FormDraft{}, err
	}
	return copyDraft(d), nil
}

// SetFields stores values on the draft and clears the error of every field
// touched. Choosing a mosque or a day copies its reference labels.
func (s *FormService) SetFields(ctx context.Context, actor models.Actor, id string, fields models.Fields) (models.FormDraft, error) {
	refs := models.ReferenceData{}
	if s.references != nil {
		if data, err := s.references.Reference(ctx); err == nil {
			refs = data
		} else {
			s.logger.Warn("reference data unavailable for form", zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.draft(actor, id)
	if err != nil {
		return models.FormDraft{}, err
	}
	for key := range fields {
		if !settable(key) {
			return models.FormDraft{}, appErrors.Clone(appErrors.ErrBadRequest, "field "+key+" cannot be set on a form")
		}
	}
	for key, value := range fields {
		applyField(&d.Record, key, value, refs)
		delete(d.Errors, strings.TrimSpace(key))
	}
	d.UpdatedAt = s.now()
	return copyDraft(d), nil
}

// SetField is SetFields for a single key.
func (s *FormService) SetField(ctx context.Context, actor models.Actor, id, key string, value interface{}) (models.FormDraft, error) {
	return s.SetFields(ctx, actor, id, models.Fields{key: value})
}

// Cancel discards the draft.
func (s *FormService) Cancel(actor models.Actor, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.draft(actor, id); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

// Submit validates the draft. An invalid draft keeps its errors and is not
// dispatched; a valid one is closed and its save dispatched.
func (s *FormService) Submit(actor models.Actor, id string) (<-chan DispatchResult, models.FormDraft, error) {
	s.mu.Lock()
	d, err := s.draft(actor, id)
	if err != nil {
		s.mu.Unlock()
		return nil, models.FormDraft{}, err
	}
	d.Errors = s.validator.Validate(d.Record.Kind, d.Record)
	if !d.Errors.Empty() {
		out := copyDraft(d)
		s.mu.Unlock()
		return nil, out, &FormValidationError{Fields: out.Errors}
	}
	delete(s.drafts, id)
	d.Record.CreatedAt = s.now().UTC().Format(CreatedAtLayout)
	out := copyDraft(d)
	s.mu.Unlock()

	s.logger.Info("form submitted", zap.String("kind", string(out.Record.Kind)), zap.String("record_id", out.Record.RecordID), zap.String("user_id", actor.ID))
	return s.dispatcher.DispatchSave(actor, out.Record), out, nil
}
