package types

import "time"

// MonitoringFrequency is the cadence at which a risk is expected to be
// reviewed. The empty value means no cadence is set.
type MonitoringFrequency string

const (
	MonitoringFrequencyNone       MonitoringFrequency = ""
	MonitoringFrequencyMonthly    MonitoringFrequency = "monthly"
	MonitoringFrequencyQuarterly  MonitoringFrequency = "quarterly"
	MonitoringFrequencySemiAnnual MonitoringFrequency = "semi_annual"
	MonitoringFrequencyAnnual     MonitoringFrequency = "annual"
)

// AllMonitoringFrequencies returns all selectable frequencies
func AllMonitoringFrequencies() []MonitoringFrequency {
	return []MonitoringFrequency{
		MonitoringFrequencyMonthly,
		MonitoringFrequencyQuarterly,
		MonitoringFrequencySemiAnnual,
		MonitoringFrequencyAnnual,
	}
}

// IsValid checks if the frequency is valid. The empty value is valid.
func (f MonitoringFrequency) IsValid() bool {
	return f == MonitoringFrequencyNone || f.months() > 0
}

func (f MonitoringFrequency) months() int {
	switch f {
	case MonitoringFrequencyMonthly:
		return 1
	case MonitoringFrequencyQuarterly:
		return 3
	case MonitoringFrequencySemiAnnual:
		return 6
	case MonitoringFrequencyAnnual:
		return 12
	default:
		return 0
	}
}

// Next returns the review date that follows from. The day is clamped to the
// last day of the target month, so Jan 31 monthly is Feb 28 (or 29). ok is
// false when no frequency is set.
func (f MonitoringFrequency) Next(from time.Time) (next time.Time, ok bool) {
	m := f.months()
	if m == 0 {
		return time.Time{}, false
	}

	y, mo, d := from.Date()
	hh, mm, ss := from.Clock()
	// Day 0 of the month after the target is the target's last day
	lastDay := time.Date(y, mo+time.Month(m)+1, 0, 0, 0, 0, 0, from.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, mo+time.Month(m), d, hh, mm, ss, from.Nanosecond(), from.Location()), true
}

func (f MonitoringFrequency) String() string {
	return string(f)
}
