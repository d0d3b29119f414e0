package model

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// MatrixCell is one (probability, impact) coordinate of the heat grid
type MatrixCell struct {
	Probability int
	Impact      int
}

// Matrix counts risks per cell
type Matrix map[MatrixCell]int

// AggregateMatrix counts risks per (probability, impact) cell. The sum of
// all cells equals len(risks).
func AggregateMatrix(risks []*Risk) Matrix {
	m := make(Matrix)
	for _, r := range risks {
		m[MatrixCell{Probability: r.Probability, Impact: r.Impact}]++
	}
	return m
}

// AggregateResidualMatrix counts risks per residual cell, skipping risks
// whose residual pair has not been evaluated.
func AggregateResidualMatrix(risks []*Risk) Matrix {
	m := make(Matrix)
	for _, r := range risks {
		if _, ok := r.ResidualLevel(); !ok {
			continue
		}
		m[MatrixCell{Probability: r.ResidualProbability, Impact: r.ResidualImpact}]++
	}
	return m
}

// Total returns the sum over all cells
func (m Matrix) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Grid renders the matrix as a 5×5 grid. Rows run from impact 5 down to 1,
// columns from probability 1 to 5.
func (m Matrix) Grid() [][]int {
	grid := make([][]int, types.MaxScale)
	for row := range grid {
		impact := types.MaxScale - row
		grid[row] = make([]int, types.MaxScale)
		for col := range grid[row] {
			grid[row][col] = m[MatrixCell{Probability: col + 1, Impact: impact}]
		}
	}
	return grid
}

// CountByLevel groups cell counts by their risk level
func (m Matrix) CountByLevel() map[types.RiskLevel]int {
	counts := make(map[types.RiskLevel]int, len(types.AllRiskLevels()))
	for _, level := range types.AllRiskLevels() {
		counts[level] = 0
	}
	for cell, n := range m {
		counts[types.LevelOf(cell.Probability, cell.Impact)] += n
	}
	return counts
}

// OverdueReviews returns the risks whose next review date is set and
// strictly before now, in input order.
func OverdueReviews(risks []*Risk, now time.Time) []*Risk {
	overdue := make([]*Risk, 0)
	for _, r := range risks {
		if r.IsOverdue(now) {
			overdue = append(overdue, r)
		}
	}
	return overdue
}
