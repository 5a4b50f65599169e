package models

// ApprovalStatus is the administrative review state of a record. The values
// are the exact strings stored by the forms; filters compare them verbatim.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "قيد المراجعة"
	StatusApprove  ApprovalStatus = "يعتمد"
	StatusReject   ApprovalStatus = "مرفوض"
	StatusApproved ApprovalStatus = "معتمد"
	StatusReturned ApprovalStatus = "يعاد التقرير"
)

// DefaultStatus is shown and filtered for records that carry no status.
const DefaultStatus = StatusPending

// StatusTone groups statuses for styling.
type StatusTone string

const (
	TonePending  StatusTone = "pending"
	ToneApproved StatusTone = "approved"
	ToneRejected StatusTone = "rejected"
	ToneReturned StatusTone = "returned"
)

var knownStatuses = map[ApprovalStatus]StatusTone{
	StatusPending:  TonePending,
	StatusApprove:  ToneApproved,
	StatusApproved: ToneApproved,
	StatusReject:   ToneRejected,
	StatusReturned: ToneReturned,
}

// OrDefault maps the empty status to DefaultStatus.
func (s ApprovalStatus) OrDefault() ApprovalStatus {
	if s == "" {
		return DefaultStatus
	}
	return s
}

// Tone returns the styling group. Unknown strings render as pending.
func (s ApprovalStatus) Tone() StatusTone {
	if tone, ok := knownStatuses[s.OrDefault()]; ok {
		return tone
	}
	return TonePending
}

// BulkTarget reports whether s may be applied by a bulk review action.
func (s ApprovalStatus) BulkTarget() bool {
	return s == StatusApprove || s == StatusReject
}

// ReviewTarget reports whether an admin may set s on a single record.
func (s ApprovalStatus) ReviewTarget() bool {
	return s.BulkTarget() || s == StatusReturned || s == StatusPending
}

// FilterStatuses are the options of the status filter, in display order.
var FilterStatuses = []ApprovalStatus{StatusPending, StatusApprove, StatusReject}
