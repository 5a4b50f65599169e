package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
	"github.com/noah-isme/masjid-field-reports/pkg/jobs"
)

const (
	jobTypeSave   = "save"
	jobTypeStatus = "status"
)

type recordWriter interface {
	Save(ctx context.Context, record models.Record) error
	UpdateStatus(ctx context.Context, kind models.RecordKind, ids []string, status models.ApprovalStatus) (int64, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type resultsInvalidator interface {
	Invalidate(ctx context.Context, kind models.RecordKind)
}

// DispatchResult is the store's final answer to one dispatched write.
type DispatchResult struct {
	JobID     string            `json:"job_id"`
	Type      string            `json:"type"`
	Kind      models.RecordKind `json:"kind"`
	RecordIDs []string          `json:"record_ids"`
	Affected  int64             `json:"affected"`
	Err       error             `json:"-"`
}

// OK reports whether the write was applied.
func (r DispatchResult) OK() bool { return r.Err == nil }

type saveTask struct {
	Record models.Record
	Actor  models.Actor
}

type statusTask struct {
	Kind   models.RecordKind
	IDs    []string
	Status models.ApprovalStatus
	Actor  models.Actor
	Bulk   bool
}

// DispatcherConfig tunes the write queue.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// DispatcherParams groups constructor dependencies.
type DispatcherParams struct {
	Store   recordWriter
	Audit   auditWriter
	Results resultsInvalidator
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DispatcherConfig
}

// Dispatcher hands record writes to a worker queue. Every dispatch returns a
// channel that receives exactly one DispatchResult and is then closed.
// Writes cannot be withdrawn once dispatched.
type Dispatcher struct {
	queue   *jobs.Queue
	store   recordWriter
	audit   auditWriter
	results resultsInvalidator
	metrics *MetricsService
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher; call Start before dispatching.
func NewDispatcher(params DispatcherParams) *Dispatcher {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		store:   params.Store,
		audit:   params.Audit,
		results: params.Results,
		metrics: params.Metrics,
		logger:  logger,
	}
	d.queue = jobs.NewQueue("record-writes", d.handle, jobs.QueueConfig{
		Workers:    params.Config.Workers,
		BufferSize: params.Config.BufferSize,
		MaxRetries: params.Config.MaxRetries,
		RetryDelay: params.Config.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) { d.queue.Start(ctx) }

// Stop halts the workers. Writes still queued report an error.
func (d *Dispatcher) Stop() { d.queue.Stop() }

// DispatchSave queues an upsert of record.
func (d *Dispatcher) DispatchSave(actor models.Actor, record models.Record) <-chan DispatchResult {
	record = record.Clone()
	return d.dispatch(jobTypeSave, record.Kind, []string{record.RecordID}, saveTask{Record: record, Actor: actor})
}

// DispatchStatus queues one status update covering every id in req.
func (d *Dispatcher) DispatchStatus(actor models.Actor, kind models.RecordKind, req models.BulkRequest, bulk bool) <-chan DispatchResult {
	ids := append([]string(nil), req.IDs...)
	return d.dispatch(jobTypeStatus, kind, ids, statusTask{Kind: kind, IDs: ids, Status: req.Status, Actor: actor, Bulk: bulk})
}

func (d *Dispatcher) dispatch(jobType string, kind models.RecordKind, ids []string, payload interface{}) <-chan DispatchResult {
	out := make(chan DispatchResult, 1)
	done := make(chan error, 1)
	affected := make(chan int64, 1)
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: jobPayload{task: payload, affected: affected}, Done: done}
	result := DispatchResult{JobID: job.ID, Type: jobType, Kind: kind, RecordIDs: ids}
	start := time.Now()

	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Error("dispatch rejected", zap.String("type", jobType), zap.Strings("record_ids", ids), zap.Error(err))
		d.metrics.ObserveDispatch(jobType, true, time.Since(start))
		result.Err = appErrors.Wrap(err, appErrors.ErrDispatch.Code, appErrors.ErrDispatch.Status, "write queue unavailable")
		out <- result
		close(out)
		return out
	}

	go func() {
		defer close(out)
		err := <-done
		d.metrics.ObserveDispatch(jobType, err != nil, time.Since(start))
		if err != nil {
			d.logger.Error("dispatch failed", zap.String("job_id", job.ID), zap.String("type", jobType),
				zap.String("kind", string(kind)), zap.Strings("record_ids", ids), zap.Error(err))
			result.Err = dispatchError(err)
		}
		select {
		case n := <-affected:
			result.Affected = n
		default:
		}
		out <- result
	}()
	return out
}

// dispatchError keeps typed store errors such as conflicts and wraps the rest.
func dispatchError(err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrDispatch.Code, appErrors.ErrDispatch.Status, appErrors.ErrDispatch.Message)
}

type jobPayload struct {
	task     interface{}
	affected chan int64
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(jobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}

	switch task := payload.task.(type) {
	case saveTask:
		if err := d.store.Save(ctx, task.Record); err != nil {
			return err
		}
		d.metrics.RecordSaved(task.Record.Kind)
		d.afterWrite(ctx, task.Record.Kind)
		setAffected(payload.affected, 1)
		return nil
	case statusTask:
		n, err := d.store.UpdateStatus(ctx, task.Kind, task.IDs, task.Status)
		if err != nil {
			return err
		}
		d.metrics.RecordStatusUpdate(task.Status, int(n))
		d.afterWrite(ctx, task.Kind)
		d.auditStatus(ctx, task, n)
		setAffected(payload.affected, n)
		d.logger.Info("status updated", zap.String("kind", string(task.Kind)), zap.String("status", string(task.Status)),
			zap.Int("requested", len(task.IDs)), zap.Int64("affected", n), zap.Bool("bulk", task.Bulk))
		return nil
	default:
		return fmt.Errorf("unknown task %T", task)
	}
}

func setAffected(ch chan int64, n int64) {
	select {
	case ch <- n:
	default:
	}
}

func (d *Dispatcher) afterWrite(ctx context.Context, kind models.RecordKind) {
	if d.results != nil {
		d.results.Invalidate(ctx, kind)
	}
}

func (d *Dispatcher) auditStatus(ctx context.Context, task statusTask, affected int64) {
	if d.audit == nil {
		return
	}
	action := models.AuditActionStatusUpdate
	if task.Bulk {
		action = models.AuditActionBulkUpdate
	}
	newValues, _ := json.Marshal(map[string]interface{}{
		"status":     task.Status,
		"record_ids": task.IDs,
		"affected":   affected,
	})
	entry := &models.AuditLog{
		Action:    action,
		Resource:  string(task.Kind),
		NewValues: newValues,
		IPAddress: task.Actor.IP,
		UserAgent: task.Actor.UserAgent,
	}
	if task.Actor.ID != "" {
		actorID := task.Actor.ID
		entry.UserID = &actorID
	}
	if len(task.IDs) == 1 {
		id := task.IDs[0]
		entry.ResourceID = &id
	}
	if err := d.audit.CreateAuditLog(ctx, entry); err != nil {
		d.logger.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// Await blocks until the dispatch finishes or ctx ends.
func Await(ctx context.Context, results <-chan DispatchResult) (DispatchResult, error) {
	select {
	case res, ok := <-results:
		if !ok {
			return DispatchResult{}, errors.New("dispatch result channel closed")
		}
		return res, res.Err
	case <-ctx.Done():
		return DispatchResult{}, appErrors.Wrap(ctx.Err(), appErrors.ErrDispatchTimeout.Code, appErrors.ErrDispatchTimeout.Status, appErrors.ErrDispatchTimeout.Message)
	}
}
