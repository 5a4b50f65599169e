package service

import (
	"math"
	"sort"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

// Aggregate computes the mean of each criterion over the records that carry
// a finite value above zero for it. Missing, zero and malformed values are
// left out of both sum and count; a criterion without data scores 0. The
// overall score is the mean of the criteria that have data.
//
// Values are summed in ascending order so the result does not depend on the
// order of records.
func Aggregate(records []models.Record, criteria []models.Criterion) models.Aggregation {
	result := models.Aggregation{Criteria: make([]models.CriterionScore, 0, len(criteria))}

	var overallSum float64
	var overallCount int
	for _, criterion := range criteria {
		values := make([]float64, 0, len(records))
		for _, r := range records {
			v, ok := r.Fields.Float(criterion.Key)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				continue
			}
			values = append(values, v)
		}

		score := mean(values)
		result.Criteria = append(result.Criteria, models.CriterionScore{
			Key:   criterion.Key,
			Label: criterion.Label,
			Score: score,
			Count: len(values),
			Band:  ScoreBand(score),
		})
		if score > 0 {
			overallSum += score
			overallCount++
		}
	}

	if overallCount > 0 {
		result.Overall = overallSum / float64(overallCount)
	}
	result.OverallBand = ScoreBand(result.Overall)
	return result
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ScoreBand buckets a 0..5 average: 4 and above is high, 3 and above medium,
// anything else above zero low.
func ScoreBand(score float64) models.ScoreBand {
	switch {
	case score >= 4:
		return models.BandHigh
	case score >= 3:
		return models.BandMedium
	case score > 0:
		return models.BandLow
	default:
		return models.BandNone
	}
}

// CollectNotes lists the non-blank general notes in record order.
func CollectNotes(records []models.Record, refs models.ReferenceData) []models.Note {
	notes := make([]models.Note, 0)
	for _, r := range records {
		text := r.Fields.String(models.FieldNotes)
		if text == "" {
			continue
		}
		notes = append(notes, models.Note{
			RecordID:  r.RecordID,
			Note:      text,
			Mosque:    MosqueLabel(r, refs),
			Evaluator: r.Fields.String(models.FieldEvaluator),
		})
	}
	return notes
}
