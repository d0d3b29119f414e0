package types

// TreatmentStatus represents the status of a risk treatment. Any status may
// move to any other status.
type TreatmentStatus string

const (
	TreatmentStatusPlanned    TreatmentStatus = "planned"
	TreatmentStatusInProgress TreatmentStatus = "in_progress"
	TreatmentStatusCompleted  TreatmentStatus = "completed"
	TreatmentStatusCancelled  TreatmentStatus = "cancelled"
)

// AllTreatmentStatuses returns all valid treatment statuses
func AllTreatmentStatuses() []TreatmentStatus {
	return []TreatmentStatus{
		TreatmentStatusPlanned,
		TreatmentStatusInProgress,
		TreatmentStatusCompleted,
		TreatmentStatusCancelled,
	}
}

// IsValid checks if the treatment status is valid
func (s TreatmentStatus) IsValid() bool {
	switch s {
	case TreatmentStatusPlanned,
		TreatmentStatusInProgress,
		TreatmentStatusCompleted,
		TreatmentStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the treatment status
func (s TreatmentStatus) String() string {
	return string(s)
}
