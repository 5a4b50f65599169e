package models

import "time"

// ScoreBand buckets an average for display.
type ScoreBand string

const (
	BandNone   ScoreBand = "none"
	BandLow    ScoreBand = "low"
	BandMedium ScoreBand = "medium"
	BandHigh   ScoreBand = "high"
)

// CriterionScore is the mean of one criterion over the qualifying records.
type CriterionScore struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Score float64   `json:"score"`
	Count int       `json:"count"`
	Band  ScoreBand `json:"band"`
}

// Aggregation is the per-criterion means plus the overall mean.
type Aggregation struct {
	Criteria    []CriterionScore `json:"criteria"`
	Overall     float64          `json:"overall"`
	OverallBand ScoreBand        `json:"overall_band"`
}

// Score returns the mean of a criterion, 0 when unknown or without data.
func (a Aggregation) Score(key string) float64 {
	for _, c := range a.Criteria {
		if c.Key == key {
			return c.Score
		}
	}
	return 0
}

// Note is a free-text remark left on an evaluation.
type Note struct {
	RecordID  string `json:"record_id"`
	Note      string `json:"note"`
	Mosque    string `json:"mosque"`
	Evaluator string `json:"evaluator"`
}

// EvaluationResults is the payload of the evaluation results dashboard.
type EvaluationResults struct {
	Filter      FilterState `json:"filter"`
	RecordCount int         `json:"record_count"`
	Aggregation
	Notes       []Note    `json:"notes"`
	GeneratedAt time.Time `json:"generated_at"`
}
