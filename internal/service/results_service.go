package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

const resultsCachePrefix = "results:"

type recordLister interface {
	ListByKind(ctx context.Context, kind models.RecordKind) ([]models.Record, error)
}

type referenceProvider interface {
	Reference(ctx context.Context) (models.ReferenceData, error)
}

// ResultsService computes the evaluation results dashboard.
type ResultsService struct {
	records    recordLister
	references referenceProvider
	cache      *CacheService
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewResultsService constructs the service. A nil cache disables caching.
func NewResultsService(records recordLister, references referenceProvider, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ResultsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsService{
		records:    records,
		references: references,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

func resultsKey(kind models.RecordKind, filter models.FilterState) string {
	return resultsCachePrefix + CacheKey(string(kind), filter.Mosque, filter.Day, filter.Status)
}

// Evaluations averages the meal criteria over the fast evaluations matching
// filter and collects their notes. The flag reports a cache hit.
func (s *ResultsService) Evaluations(ctx context.Context, filter models.FilterState) (models.EvaluationResults, bool, error) {
	filter = filter.Normalize()
	key := resultsKey(models.KindFastEval, filter)

	var cached models.EvaluationResults
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	records, err := s.records.ListByKind(ctx, models.KindFastEval)
	if err != nil {
		return models.EvaluationResults{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluations")
	}
	refs, err := s.references.Reference(ctx)
	if err != nil {
		s.logger.Warn("reference data unavailable, using record labels", zap.Error(err))
		refs = models.ReferenceData{}
	}

	subset := FilterRecords(records, filter)
	results := models.EvaluationResults{
		Filter:      filter,
		RecordCount: len(subset),
		Aggregation: Aggregate(subset, models.MealCriteria),
		Notes:       CollectNotes(subset, refs),
		GeneratedAt: s.now().UTC(),
	}

	_ = s.cache.Set(ctx, key, results, s.ttl)
	return results, false, nil
}

// Invalidate drops cached results of kind. It satisfies the dispatcher's
// post-write hook.
func (s *ResultsService) Invalidate(ctx context.Context, kind models.RecordKind) {
	_ = s.cache.Invalidate(ctx, resultsCachePrefix+string(kind)+":*")
}
