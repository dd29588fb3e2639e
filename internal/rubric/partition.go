// Package rubric implements the grade-component weighting engine: exact
// partition of a category's total weight across its items, the subject-level
// 100% ceiling, and whole-category reconciliation against the ledger.
//
// Weights are percentages of a subject's final grade. By convention every
// allocation writes max_score equal to the item's weight, so a 5%-weight
// quiz is graded out of 5 points and raw-score averages convert directly to
// percentages downstream.
package rubric

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/campusmis/rubric/internal/store"
)

const (
	// WeightCeiling caps the sum of a subject's component weights.
	WeightCeiling = 100.0
	// Epsilon is the tolerance applied to ceiling comparisons.
	Epsilon = 0.01
	// MaxQuantity bounds how many items one allocation may create.
	MaxQuantity = 20

	// sumTolerance is the post-partition re-verification bound.
	sumTolerance = 0.001
)

// SplitWeight partitions totalWeight into quantity shares that sum back to
// totalWeight exactly. The first quantity-1 shares are the equal split
// rounded half-up to two decimal places; the last share absorbs the rounding
// remainder. Arithmetic is fixed-point decimal so no binary-float drift can
// leak into the ledger.
func SplitWeight(totalWeight float64, quantity int) []float64 {
	total := decimal.NewFromFloat(totalWeight)
	share := total.DivRound(decimal.NewFromInt(int64(quantity)), 2)

	shares := make([]float64, quantity)
	allocated := decimal.Zero
	for i := 0; i < quantity-1; i++ {
		shares[i] = share.InexactFloat64()
		allocated = allocated.Add(share)
	}
	shares[quantity-1] = total.Sub(allocated).InexactFloat64()
	return shares
}

// VerifySum re-checks that shares sum to totalWeight within the internal
// tolerance. A failure means the partition arithmetic is defective and the
// batch must not be persisted.
func VerifySum(shares []float64, totalWeight float64) error {
	sum := decimal.Zero
	for _, w := range shares {
		sum = sum.Add(decimal.NewFromFloat(w))
	}
	got := sum.InexactFloat64()
	if math.Abs(got-totalWeight) > sumTolerance {
		return &ConsistencyError{Expected: totalWeight, Got: got}
	}
	return nil
}

// checkCeiling rejects a request that would push the subject total past the
// ceiling, keeping the epsilon tolerance for float comparison.
func checkCeiling(currentTotal, requested float64) error {
	wouldBe := currentTotal + requested
	if wouldBe > WeightCeiling+Epsilon {
		return &CeilingError{
			CurrentTotal: currentTotal,
			Requested:    requested,
			WouldBeTotal: wouldBe,
		}
	}
	return nil
}

// RenumberCategories assigns fresh display orders for a caller-supplied
// category sequence: each listed category gets a base of 100 times its
// position, and its components get base+0, base+1, ... preserving their
// current relative order. Components whose category is not listed keep
// their existing order. The components slice must already be in
// (display_order, component_type, id) order.
func RenumberCategories(components []*store.GradeComponent, ordered []store.ComponentType) map[int64]int {
	orders := make(map[int64]int)
	for pos, t := range ordered {
		base := 100 * pos
		idx := 0
		for _, c := range components {
			if c.Type != t {
				continue
			}
			orders[c.ID] = base + idx
			idx++
		}
	}
	return orders
}
