package models

import "strings"

// RecordKind tags which report form produced a record.
type RecordKind string

const (
	KindFastEval    RecordKind = "fast_eval"
	KindMaintenance RecordKind = "maintenance"
	KindAttendance  RecordKind = "attendance"
)

// Kinds lists every record kind in display order.
var Kinds = []RecordKind{KindFastEval, KindMaintenance, KindAttendance}

var kindPrefixes = map[RecordKind]string{
	KindFastEval:    "FEV",
	KindMaintenance: "MNT",
	KindAttendance:  "ATT",
}

var kindTitles = map[RecordKind]string{
	KindFastEval:    "تقييم وجبات الإفطار",
	KindMaintenance: "الصيانة والنظافة",
	KindAttendance:  "سجلات الأنشطة الميدانية",
}

// ParseKind validates a kind taken from a URL or CLI flag.
func ParseKind(raw string) (RecordKind, bool) {
	kind := RecordKind(strings.TrimSpace(strings.ToLower(raw)))
	_, ok := kindPrefixes[kind]
	return kind, ok
}

// Prefix is the id prefix for records of this kind.
func (k RecordKind) Prefix() string { return kindPrefixes[k] }

// Title is the Arabic heading of the kind's screens and exports.
func (k RecordKind) Title() string { return kindTitles[k] }

// Record is one submitted field report. The header columns are shared by all
// kinds; everything else lives in Fields under its Arabic field key.
type Record struct {
	Kind       RecordKind     `db:"kind" json:"kind"`
	RecordID   string         `db:"record_id" json:"record_id"`
	MosqueCode string         `db:"mosque_code" json:"mosque_code"`
	CodeDay    string         `db:"code_day" json:"code_day"`
	Status     ApprovalStatus `db:"status" json:"الاعتماد,omitempty"`
	CreatedAt  string         `db:"created_at" json:"created_at,omitempty"`
	CreatedBy  string         `db:"created_by" json:"created_by,omitempty"`
	Fields     Fields         `db:"payload" json:"fields"`
}

// StatusOrDefault returns the approval status, treating an empty one as pending.
func (r Record) StatusOrDefault() ApprovalStatus {
	return r.Status.OrDefault()
}

// Clone returns a copy whose Fields map can be mutated independently.
func (r Record) Clone() Record {
	r.Fields = r.Fields.Clone()
	return r
}

// MosqueName is the mosque name stored on the record itself, if any.
func (r Record) MosqueName() string { return r.Fields.String(FieldMosqueName) }

// EvaluationView is the typed reading of a fast_eval record.
type EvaluationView struct {
	MosqueName string
	SiteType   string
	Evaluator  string
	Notes      string
	Ratings    map[string]int
}

// MaintenanceView is the typed reading of a maintenance record.
type MaintenanceView struct {
	MosqueName       string
	Date             string
	MaintenanceCount int
	CleaningCount    int
	Notes            string
}

// AttendanceView is the typed reading of an attendance record.
type AttendanceView struct {
	MosqueName string
	DayLabel   string
	Men        int
	Women      int
}

// Total is the number of worshippers counted.
func (a AttendanceView) Total() int { return a.Men + a.Women }

// Evaluation reads the fast_eval payload. Ratings that are absent or not
// integers in [1,5] are left out.
func (r Record) Evaluation() EvaluationView {
	view := EvaluationView{
		MosqueName: r.Fields.String(FieldMosqueName),
		SiteType:   r.Fields.String(FieldSiteType),
		Evaluator:  r.Fields.String(FieldEvaluator),
		Notes:      r.Fields.String(FieldNotes),
		Ratings:    make(map[string]int),
	}
	for _, criterion := range MealCriteria {
		if rating, ok := r.Fields.Rating(criterion.Key); ok {
			view.Ratings[criterion.Key] = rating
		}
	}
	return view
}

// Maintenance reads the maintenance payload.
func (r Record) Maintenance() MaintenanceView {
	return MaintenanceView{
		MosqueName:       r.Fields.String(FieldMosqueName),
		Date:             r.Fields.String(FieldDate),
		MaintenanceCount: r.Fields.Int(FieldMaintenanceCount),
		CleaningCount:    r.Fields.Int(FieldCleaningCount),
		Notes:            r.Fields.String(FieldNotes),
	}
}

// Attendance reads the attendance payload.
func (r Record) Attendance() AttendanceView {
	return AttendanceView{
		MosqueName: r.Fields.String(FieldMosqueName),
		DayLabel:   r.Fields.String(FieldDayLabel),
		Men:        r.Fields.Int(FieldMenCount),
		Women:      r.Fields.Int(FieldWomenCount),
	}
}
