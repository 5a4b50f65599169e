package models

// UnknownLabel replaces names for codes missing from reference data.
const UnknownLabel = "غير محدد"

// Mosque is a reference row of the mosques sheet.
type Mosque struct {
	Code     string `db:"mosque_code" json:"mosque_code"`
	Name     string `db:"name" json:"المسجد"`
	SiteType string `db:"site_type" json:"نوع الموقع"`
}

// Day is a reference row of the days sheet.
type Day struct {
	Code  string `db:"code_day" json:"code_day"`
	Label string `db:"label" json:"label"`
}

// ReferenceData bundles the lookup lists used to label records.
type ReferenceData struct {
	Mosques []Mosque `json:"mosques"`
	Days    []Day    `json:"days"`
}

// Mosque looks up a mosque by code.
func (r ReferenceData) Mosque(code string) (Mosque, bool) {
	for _, m := range r.Mosques {
		if m.Code == code {
			return m, true
		}
	}
	return Mosque{}, false
}

// DayLabel returns the label of a day code, or "" when unknown.
func (r ReferenceData) DayLabel(code string) string {
	for _, d := range r.Days {
		if d.Code == code {
			return d.Label
		}
	}
	return ""
}
