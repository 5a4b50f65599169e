package models

// BulkRequest is one batched status change over the selected records.
type BulkRequest struct {
	IDs    []string       `json:"ids"`
	Status ApprovalStatus `json:"status"`
}

// StatusChange is a single-record status update by a reviewer.
type StatusChange struct {
	Status ApprovalStatus `json:"status"`
}

// SelectionSnapshot is the reviewer's selection as rendered by the table.
type SelectionSnapshot struct {
	Kind        RecordKind `json:"kind"`
	Selected    []string   `json:"selected"`
	Count       int        `json:"count"`
	ViewCount   int        `json:"view_count"`
	AllSelected bool       `json:"all_selected"`
}
