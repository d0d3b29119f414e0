package types

import "fmt"

// RiskStatus represents the lifecycle status of a risk
type RiskStatus string

const (
	RiskStatusIdentified RiskStatus = "identified"
	RiskStatusAnalyzing  RiskStatus = "analyzing"
	RiskStatusTreating   RiskStatus = "treating"
	RiskStatusMonitoring RiskStatus = "monitoring"
	RiskStatusClosed     RiskStatus = "closed"
)

// AllRiskStatuses returns all valid risk statuses in lifecycle order
func AllRiskStatuses() []RiskStatus {
	return []RiskStatus{
		RiskStatusIdentified,
		RiskStatusAnalyzing,
		RiskStatusTreating,
		RiskStatusMonitoring,
		RiskStatusClosed,
	}
}

// IsValid checks if the risk status is one of the canonical values
func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskStatusIdentified,
		RiskStatusAnalyzing,
		RiskStatusTreating,
		RiskStatusMonitoring,
		RiskStatusClosed:
		return true
	default:
		return false
	}
}

// Normalize returns the status, treating empty as RiskStatusIdentified.
func (s RiskStatus) Normalize() RiskStatus {
	if s == "" {
		return RiskStatusIdentified
	}
	return s
}

// String returns the string representation of the risk status
func (s RiskStatus) String() string {
	return string(s)
}

// ParseRiskStatus parses a string into a RiskStatus
func ParseRiskStatus(s string) (RiskStatus, error) {
	status := RiskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid risk status: %s", s)
	}
	return status, nil
}
