package types_test

import (
	"slices"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		name        string
		probability int
		impact      int
		want        types.RiskLevel
	}{
		{"minimum", 1, 1, types.RiskLevelLow},
		{"upper edge of low", 2, 2, types.RiskLevelLow},
		{"low with 4x1", 4, 1, types.RiskLevelLow},
		{"lower edge of medium", 5, 1, types.RiskLevelMedium},
		{"upper edge of medium", 3, 3, types.RiskLevelMedium},
		{"lower edge of high", 5, 2, types.RiskLevelHigh},
		{"3x4 is high", 3, 4, types.RiskLevelHigh},
		{"upper edge of high", 4, 4, types.RiskLevelHigh},
		{"lower edge of critical", 4, 5, types.RiskLevelCritical},
		{"maximum", 5, 5, types.RiskLevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, types.LevelOf(tt.probability, tt.impact)).Equal(tt.want)
		})
	}
}

func TestLevelOf_Bands(t *testing.T) {
	for p := types.MinScale; p <= types.MaxScale; p++ {
		for i := types.MinScale; i <= types.MaxScale; i++ {
			score := p * i
			var want types.RiskLevel
			switch {
			case score <= 4:
				want = types.RiskLevelLow
			case score >= 5 && score <= 9:
				want = types.RiskLevelMedium
			case score >= 10 && score <= 16:
				want = types.RiskLevelHigh
			default:
				want = types.RiskLevelCritical
			}
			gt.Value(t, types.LevelOf(p, i)).Equal(want)
			gt.Number(t, types.Score(p, i)).Equal(score)
		}
	}
}

func TestLevelOf_Monotonic(t *testing.T) {
	levels := types.AllRiskLevels()
	rank := func(p, i int) int {
		return slices.Index(levels, types.LevelOf(p, i))
	}

	for p := types.MinScale; p <= types.MaxScale; p++ {
		for i := types.MinScale; i <= types.MaxScale; i++ {
			cur := rank(p, i)
			gt.Bool(t, cur >= 0).True()
			if p < types.MaxScale {
				gt.Bool(t, rank(p+1, i) >= cur).True()
			}
			if i < types.MaxScale {
				gt.Bool(t, rank(p, i+1) >= cur).True()
			}
		}
	}
}

func TestResidualLevelOf(t *testing.T) {
	t.Run("zero probability is not evaluated", func(t *testing.T) {
		_, ok := types.ResidualLevelOf(0, 4)
		gt.Bool(t, ok).False()
	})

	t.Run("zero impact is not evaluated", func(t *testing.T) {
		_, ok := types.ResidualLevelOf(3, 0)
		gt.Bool(t, ok).False()
	})

	t.Run("evaluated pair uses the same bands", func(t *testing.T) {
		level, ok := types.ResidualLevelOf(2, 3)
		gt.Bool(t, ok).True()
		gt.Value(t, level).Equal(types.RiskLevelMedium)
	})
}

func TestScaleBounds(t *testing.T) {
	gt.Bool(t, types.InScale(0)).False()
	gt.Bool(t, types.InScale(1)).True()
	gt.Bool(t, types.InScale(5)).True()
	gt.Bool(t, types.InScale(6)).False()

	gt.Bool(t, types.InResidualScale(-1)).False()
	gt.Bool(t, types.InResidualScale(0)).True()
	gt.Bool(t, types.InResidualScale(5)).True()
	gt.Bool(t, types.InResidualScale(6)).False()
}
