package types

// TreatmentStrategy is the intended way of handling a risk. The empty value
// means no strategy has been chosen yet.
type TreatmentStrategy string

const (
	TreatmentStrategyNone     TreatmentStrategy = ""
	TreatmentStrategyAccept   TreatmentStrategy = "accept"
	TreatmentStrategyMitigate TreatmentStrategy = "mitigate"
	TreatmentStrategyTransfer TreatmentStrategy = "transfer"
	TreatmentStrategyAvoid    TreatmentStrategy = "avoid"
)

// AllTreatmentStrategies returns all selectable strategies
func AllTreatmentStrategies() []TreatmentStrategy {
	return []TreatmentStrategy{
		TreatmentStrategyAccept,
		TreatmentStrategyMitigate,
		TreatmentStrategyTransfer,
		TreatmentStrategyAvoid,
	}
}

// IsValid checks if the strategy is valid. The empty value is valid.
func (s TreatmentStrategy) IsValid() bool {
	switch s {
	case TreatmentStrategyNone,
		TreatmentStrategyAccept,
		TreatmentStrategyMitigate,
		TreatmentStrategyTransfer,
		TreatmentStrategyAvoid:
		return true
	default:
		return false
	}
}

func (s TreatmentStrategy) String() string {
	return string(s)
}
