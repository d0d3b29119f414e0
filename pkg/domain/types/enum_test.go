package types_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestRiskStatus_IsValid(t *testing.T) {
	for _, s := range types.AllRiskStatuses() {
		gt.Bool(t, s.IsValid()).True()
	}

	tests := []struct {
		name   string
		status types.RiskStatus
	}{
		{"legacy treated", "treated"},
		{"legacy accepted", "accepted"},
		{"legacy monitored", "monitored"},
		{"uppercase", "IDENTIFIED"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Bool(t, tt.status.IsValid()).False()
			_, err := types.ParseRiskStatus(string(tt.status))
			gt.Error(t, err)
		})
	}
}

func TestRiskStatus_Normalize(t *testing.T) {
	gt.Value(t, types.RiskStatus("").Normalize()).Equal(types.RiskStatusIdentified)
	gt.Value(t, types.RiskStatusTreating.Normalize()).Equal(types.RiskStatusTreating)
	gt.Value(t, types.RiskStatusClosed.Normalize()).Equal(types.RiskStatusClosed)
}

func TestTreatmentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status types.TreatmentStatus
		want   bool
	}{
		{types.TreatmentStatusPlanned, true},
		{types.TreatmentStatusInProgress, true},
		{types.TreatmentStatusCompleted, true},
		{types.TreatmentStatusCancelled, true},
		{"done", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if tt.want {
				gt.Bool(t, tt.status.IsValid()).True()
			} else {
				gt.Bool(t, tt.status.IsValid()).False()
			}
		})
	}
}

func TestNullableEnums(t *testing.T) {
	gt.Bool(t, types.TreatmentStrategyNone.IsValid()).True()
	gt.Bool(t, types.TreatmentStrategy("share").IsValid()).False()
	gt.Array(t, types.AllTreatmentStrategies()).Length(4)

	gt.Bool(t, types.MonitoringFrequencyNone.IsValid()).True()
	gt.Bool(t, types.MonitoringFrequency("weekly").IsValid()).False()

	gt.Bool(t, types.Category("").IsValid()).False()
	gt.Array(t, types.AllCategories()).Length(6)
}

func TestMonitoringFrequency_Next(t *testing.T) {
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		freq types.MonitoringFrequency
		want time.Time
	}{
		{types.MonitoringFrequencyMonthly, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)},
		{types.MonitoringFrequencyQuarterly, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)},
		{types.MonitoringFrequencySemiAnnual, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)},
		{types.MonitoringFrequencyAnnual, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.freq.String(), func(t *testing.T) {
			next, ok := tt.freq.Next(base)
			gt.Bool(t, ok).True()
			gt.Value(t, next).Equal(tt.want)
		})
	}

	_, ok := types.MonitoringFrequencyNone.Next(base)
	gt.Bool(t, ok).False()
}

func TestMonitoringFrequency_Next_MonthEnd(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		freq types.MonitoringFrequency
		from time.Time
		want time.Time
	}{
		{"monthly from Jan 31", types.MonitoringFrequencyMonthly, date(2026, time.January, 31), date(2026, time.February, 28)},
		{"monthly from Jan 31 leap year", types.MonitoringFrequencyMonthly, date(2028, time.January, 31), date(2028, time.February, 29)},
		{"monthly from Aug 31", types.MonitoringFrequencyMonthly, date(2026, time.August, 31), date(2026, time.September, 30)},
		{"monthly from Dec 31", types.MonitoringFrequencyMonthly, date(2026, time.December, 31), date(2027, time.January, 31)},
		{"quarterly from Nov 30", types.MonitoringFrequencyQuarterly, date(2026, time.November, 30), date(2027, time.February, 28)},
		{"semi annual from Aug 31", types.MonitoringFrequencySemiAnnual, date(2026, time.August, 31), date(2027, time.February, 28)},
		{"annual from Feb 29", types.MonitoringFrequencyAnnual, date(2028, time.February, 29), date(2029, time.February, 28)},
		{"monthly from Jan 30", types.MonitoringFrequencyMonthly, date(2026, time.January, 30), date(2026, time.February, 28)},
		{"monthly mid month keeps day", types.MonitoringFrequencyMonthly, date(2026, time.March, 15), date(2026, time.April, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := tt.freq.Next(tt.from)
			gt.Bool(t, ok).True()
			gt.Value(t, next).Equal(tt.want)
		})
	}
}

func TestWorkspaceID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.WorkspaceID
		wantErr bool
	}{
		{"valid", "acme-iso", false},
		{"valid with numbers", "tenant-01", false},
		{"empty", "", true},
		{"uppercase", "Acme", true},
		{"underscore", "acme_iso", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				gt.Error(t, err)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}
