package dto

import "github.com/noah-isme/masjid-field-reports/internal/models"

// Action labels of the record tables.
const (
	ActionReview     = "مراجعة واعتماد"
	ActionEditReport = "تعديل التقرير"
	ActionEdit       = "تعديل"
)

// RecordRow is one rendered table row with every derived label resolved.
type RecordRow struct {
	RecordID    string                `json:"record_id"`
	Kind        models.RecordKind     `json:"kind"`
	MosqueCode  string                `json:"mosque_code"`
	Mosque      string                `json:"mosque"`
	DayCode     string                `json:"code_day"`
	Day         string                `json:"day"`
	Status      models.ApprovalStatus `json:"status"`
	StatusTone  models.StatusTone     `json:"status_tone"`
	CreatedAt   string                `json:"created_at,omitempty"`
	CreatedBy   string                `json:"created_by,omitempty"`
	Evaluator   string                `json:"evaluator,omitempty"`
	Worshippers *int                  `json:"worshippers,omitempty"`
	Maintenance *int                  `json:"maintenance_count,omitempty"`
	Cleaning    *int                  `json:"cleaning_count,omitempty"`
	Selected    bool                  `json:"selected"`
	CanEdit     bool                  `json:"can_edit"`
	Action      string                `json:"action"`
}

// RecordList is the payload of a record table.
type RecordList struct {
	Kind      models.RecordKind         `json:"kind"`
	Title     string                    `json:"title"`
	Filter    models.FilterState        `json:"filter"`
	Search    string                    `json:"search,omitempty"`
	Rows      []RecordRow               `json:"rows"`
	Total     int                       `json:"total"`
	Statuses  []models.ApprovalStatus   `json:"statuses"`
	Selection *models.SelectionSnapshot `json:"selection,omitempty"`
}

// RecordDetail is a single record with its derived labels.
type RecordDetail struct {
	Record     models.Record         `json:"record"`
	Mosque     string                `json:"mosque"`
	Day        string                `json:"day"`
	Status     models.ApprovalStatus `json:"status"`
	StatusTone models.StatusTone     `json:"status_tone"`
	CanEdit    bool                  `json:"can_edit"`
	CanReview  bool                  `json:"can_review"`
}

// DispatchAck answers a write request.
type DispatchAck struct {
	JobID     string            `json:"job_id,omitempty"`
	Kind      models.RecordKind `json:"kind"`
	RecordIDs []string          `json:"record_ids"`
	Status    string            `json:"status,omitempty"`
	Affected  int64             `json:"affected"`
	Confirmed bool              `json:"confirmed"`
}

// FormPatch sets draft fields: either one Key/Value pair or a Fields map.
type FormPatch struct {
	Key    string        `json:"key,omitempty"`
	Value  interface{}   `json:"value,omitempty"`
	Fields models.Fields `json:"fields,omitempty"`
}

// RecordEdit carries the fields an author changes on a saved record.
type RecordEdit struct {
	Fields models.Fields `json:"fields"`
}

// SelectionToggle flips one row of the reviewer's selection.
type SelectionToggle struct {
	ID string `json:"id"`
}

// FormOpen starts a new report form.
type FormOpen struct {
	Kind models.RecordKind `json:"kind"`
}
