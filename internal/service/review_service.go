package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

type statusDispatcher interface {
	DispatchStatus(actor models.Actor, kind models.RecordKind, req models.BulkRequest, bulk bool) <-chan DispatchResult
}

type reviewSession struct {
	selection *Selection
	touched   time.Time
}

// ReviewService keeps one selection per reviewer and record kind and turns it
// into bulk status updates.
type ReviewService struct {
	dispatcher statusDispatcher
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*reviewSession
}

// NewReviewService constructs the service. A non-positive ttl keeps sessions forever.
func NewReviewService(dispatcher statusDispatcher, ttl time.Duration, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		dispatcher: dispatcher,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*reviewSession),
	}
}

func sessionKey(userID string, kind models.RecordKind) string {
	return userID + "|" + string(kind)
}

// session returns the caller's selection, creating it on first use, and drops
// sessions idle for longer than ttl. Callers hold mu.
func (s *ReviewService) session(actor models.Actor, kind models.RecordKind) *Selection {
	now := s.now()
	if s.ttl > 0 {
		for key, sess := range s.sessions {
			if now.Sub(sess.touched) > s.ttl {
				delete(s.sessions, key)
			}
		}
	}
	key := sessionKey(actor.ID, kind)
	sess, ok := s.sessions[key]
	if !ok {
		sess = &reviewSession{selection: NewSelection()}
		s.sessions[key] = sess
	}
	sess.touched = now
	return sess.selection
}

func authorizeReview(actor models.Actor) error {
	if !actor.CanReview() {
		return appErrors.Clone(appErrors.ErrForbidden, "only reviewers may change approval status")
	}
	return nil
}

func snapshot(kind models.RecordKind, sel *Selection) models.SelectionSnapshot {
	return models.SelectionSnapshot{
		Kind:        kind,
		Selected:    sel.Selected(),
		Count:       sel.Len(),
		ViewCount:   sel.ViewLen(),
		AllSelected: sel.AllSelected(),
	}
}

// SyncView records the ids the reviewer currently sees and prunes the
// selection to them. Non-reviewers have no selection and are ignored.
func (s *ReviewService) SyncView(actor models.Actor, kind models.RecordKind, ids []string) {
	if !actor.CanReview() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(actor, kind).SetView(ids)
}

// Selected returns a lookup of the reviewer's checked ids. Non-reviewers get nil.
func (s *ReviewService) Selected(actor models.Actor, kind models.RecordKind) map[string]bool {
	if !actor.CanReview() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.session(actor, kind).Selected()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// Snapshot returns the reviewer's selection.
func (s *ReviewService) Snapshot(actor models.Actor, kind models.RecordKind) (models.SelectionSnapshot, error) {
	if err := authorizeReview(actor); err != nil {
		return models.SelectionSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(kind, s.session(actor, kind)), nil
}

// Toggle flips one id. Ids outside the current view leave the selection as is.
func (s *ReviewService) Toggle(actor models.Actor, kind models.RecordKind, id string) (models.SelectionSnapshot, error) {
	if err := authorizeReview(actor); err != nil {
		return models.SelectionSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.session(actor, kind)
	if !sel.Toggle(id) {
		s.logger.Debug("toggle ignored, id not in view", zap.String("kind", string(kind)), zap.String("record_id", id))
	}
	return snapshot(kind, sel), nil
}

// ToggleAll flips the header checkbox.
func (s *ReviewService) ToggleAll(actor models.Actor, kind models.RecordKind) (models.SelectionSnapshot, error) {
	if err := authorizeReview(actor); err != nil {
		return models.SelectionSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.session(actor, kind)
	sel.ToggleAll()
	return snapshot(kind, sel), nil
}

// Bulk applies status to every selected record with a single dispatch. The
// selection is cleared before the store answers. An empty selection
// dispatches nothing and returns a nil channel.
func (s *ReviewService) Bulk(actor models.Actor, kind models.RecordKind, status models.ApprovalStatus) (<-chan DispatchResult, models.BulkRequest, error) {
	if err := authorizeReview(actor); err != nil {
		return nil, models.BulkRequest{}, err
	}
	if !status.BulkTarget() {
		return nil, models.BulkRequest{}, appErrors.Clone(appErrors.ErrInvalidStatus, "bulk status must be يعتمد or مرفوض")
	}

	s.mu.Lock()
	req, ok := s.session(actor, kind).TakeBulk(status)
	s.mu.Unlock()
	if !ok {
		return nil, models.BulkRequest{}, nil
	}

	s.logger.Info("bulk status dispatched",
		zap.String("user_id", actor.ID),
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.Int("count", len(req.IDs)),
	)
	return s.dispatcher.DispatchStatus(actor, kind, req, true), req, nil
}
