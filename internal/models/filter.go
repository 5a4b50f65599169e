package models

import "strings"

// AllSentinel is the legacy "no constraint" value of the results screen.
const AllSentinel = "all"

// FilterState holds the exact-match constraints of a list view. Empty
// dimensions do not constrain.
type FilterState struct {
	Mosque string `form:"mosque" json:"mosque"`
	Day    string `form:"day" json:"day"`
	Status string `form:"status" json:"status"`
}

// Normalize trims every dimension and maps the "all" sentinel to empty.
func (f FilterState) Normalize() FilterState {
	clean := func(v string) string {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, AllSentinel) {
			return ""
		}
		return v
	}
	return FilterState{Mosque: clean(f.Mosque), Day: clean(f.Day), Status: clean(f.Status)}
}

// IsZero reports whether the filter constrains nothing.
func (f FilterState) IsZero() bool {
	return f.Mosque == "" && f.Day == "" && f.Status == ""
}

// RecordQuery is the full query of a record list request.
type RecordQuery struct {
	Filter   FilterState
	Search   string
	Page     int
	PageSize int
}
