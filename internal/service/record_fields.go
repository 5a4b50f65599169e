package service

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

// Header keys a form may not overwrite through its fields.
var protectedKeys = map[string]struct{}{
	"record_id":  {},
	"kind":       {},
	"created_at": {},
	"created_by": {},
	"الاعتماد":   {},
}

// settable reports whether a form may write key.
func settable(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	_, protected := protectedKeys[key]
	return !protected
}

// applyField stores one form value on record. Mosque and day codes go to the
// header and pull their reference labels along; protected keys are ignored
// and reported false.
func applyField(record *models.Record, key string, value interface{}, refs models.ReferenceData) bool {
	if !settable(key) {
		return false
	}
	key = strings.TrimSpace(key)
	if record.Fields == nil {
		record.Fields = models.Fields{}
	}

	switch key {
	case models.FieldMosqueCode:
		code := strings.TrimSpace(cast.ToString(value))
		record.MosqueCode = code
		if m, ok := refs.Mosque(code); ok {
			record.Fields[models.FieldMosqueName] = m.Name
			record.Fields[models.FieldSiteType] = m.SiteType
		} else {
			delete(record.Fields, models.FieldMosqueName)
			delete(record.Fields, models.FieldSiteType)
		}
	case models.FieldCodeDay:
		code := strings.TrimSpace(cast.ToString(value))
		record.CodeDay = code
		if label := refs.DayLabel(code); label != "" {
			record.Fields[models.FieldDayLabel] = label
		} else {
			delete(record.Fields, models.FieldDayLabel)
		}
	default:
		if value == nil {
			delete(record.Fields, key)
		} else {
			record.Fields[key] = value
		}
	}
	return true
}
