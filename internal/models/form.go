package models

import "time"

// FormErrors maps a field key to its inline error message. Empty means valid.
type FormErrors map[string]string

// Empty reports whether no field failed.
func (e FormErrors) Empty() bool { return len(e) == 0 }

// FormDraft is an open report form that has not been submitted yet. The
// record id is fixed when the form is opened.
type FormDraft struct {
	Record    Record     `json:"record"`
	Errors    FormErrors `json:"errors"`
	Owner     string     `json:"-"`
	OpenedAt  time.Time  `json:"opened_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID        string
	Role      UserRole
	IP        string
	UserAgent string
}

// CanReview reports whether the actor may change approval statuses.
func (a Actor) CanReview() bool { return a.Role.CanReview() }
