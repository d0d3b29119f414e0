package types

// RiskLevel is the qualitative band derived from probability × impact
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

const (
	// MinScale and MaxScale bound the probability and impact axes.
	MinScale = 1
	MaxScale = 5
	// ResidualNotEvaluated marks a residual axis that has not been assessed.
	ResidualNotEvaluated = 0
)

// AllRiskLevels returns all levels from lowest to highest
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{
		RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh,
		RiskLevelCritical,
	}
}

// Score returns probability × impact
func Score(probability, impact int) int {
	return probability * impact
}

// LevelOf maps a probability/impact pair in [1,5]×[1,5] to its risk level.
// The band boundaries are fixed business calibration: 1-4 low, 5-9 medium,
// 10-16 high, 17-25 critical.
func LevelOf(probability, impact int) RiskLevel {
	score := Score(probability, impact)
	switch {
	case score <= 4:
		return RiskLevelLow
	case score <= 9:
		return RiskLevelMedium
	case score <= 16:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ResidualLevelOf returns the level of a residual pair. A zero on either
// axis means the residual has not been evaluated and ok is false.
func ResidualLevelOf(probability, impact int) (level RiskLevel, ok bool) {
	if probability == ResidualNotEvaluated || impact == ResidualNotEvaluated {
		return "", false
	}
	return LevelOf(probability, impact), true
}

// InScale reports whether v is a valid probability or impact value
func InScale(v int) bool {
	return v >= MinScale && v <= MaxScale
}

// InResidualScale reports whether v is a valid residual value
func InResidualScale(v int) bool {
	return v >= ResidualNotEvaluated && v <= MaxScale
}

func (l RiskLevel) String() string {
	return string(l)
}
