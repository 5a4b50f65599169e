package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// FilterRecords keeps the records matching every non-empty dimension of
// state. Records without a status match the default status. Input order is
// preserved and the input slice is not modified.
func FilterRecords(records []models.Record, state models.FilterState) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if state.Mosque != "" && r.MosqueCode != state.Mosque {
			continue
		}
		if state.Day != "" && r.CodeDay != state.Day {
			continue
		}
		if state.Status != "" && string(r.StatusOrDefault()) != state.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortNewestFirst returns a copy ordered by creation time, newest first.
// Records whose time cannot be read sort last, keeping their relative order.
func SortNewestFirst(records []models.Record) []models.Record {
	type stamped struct {
		record models.Record
		at     time.Time
	}
	items := make([]stamped, len(records))
	for i, r := range records {
		items[i] = stamped{record: r, at: RecordTime(r)}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].at.After(items[j].at) })

	out := make([]models.Record, len(items))
	for i, item := range items {
		out[i] = item.record
	}
	return out
}

// SearchByMosqueName keeps records whose mosque name contains term, ignoring
// case. The name comes from the record, then from reference data.
func SearchByMosqueName(records []models.Record, term string, refs models.ReferenceData) []models.Record {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		out := make([]models.Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(mosqueName(r, refs)), needle) {
			out = append(out, r)
		}
	}
	return out
}

// RecordTime reads the creation time of a record. Maintenance reports fall
// back to their report date. Unreadable values yield the Unix epoch.
func RecordTime(r models.Record) time.Time {
	raw := strings.TrimSpace(r.CreatedAt)
	if raw == "" && r.Kind == models.KindMaintenance {
		raw = r.Fields.String(models.FieldDate)
	}
	return parseTimestamp(raw)
}

func parseTimestamp(raw string) time.Time {
	epoch := time.Unix(0, 0).UTC()
	if raw == "" {
		return epoch
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	// Dates pasted from spreadsheets arrive as serial day numbers.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial >= 20000 && serial <= 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC()
		}
	}
	return epoch
}

func mosqueName(r models.Record, refs models.ReferenceData) string {
	if name := r.MosqueName(); name != "" {
		return name
	}
	if m, ok := refs.Mosque(r.MosqueCode); ok {
		return m.Name
	}
	return ""
}

// MosqueLabel is the display name of a record's mosque, never empty.
func MosqueLabel(r models.Record, refs models.ReferenceData) string {
	if name := mosqueName(r, refs); name != "" {
		return name
	}
	return models.UnknownLabel
}

// DayLabel is the display label of a record's day, falling back to the
// stored label and then the raw code.
func DayLabel(r models.Record, refs models.ReferenceData) string {
	if label := r.Fields.String(models.FieldDayLabel); label != "" {
		return label
	}
	if label := refs.DayLabel(r.CodeDay); label != "" {
		return label
	}
	if r.CodeDay != "" {
		return r.CodeDay
	}
	return models.UnknownLabel
}
