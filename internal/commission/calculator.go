package commission

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Group is one seller's slice of a cart: the gross amount of that seller's
// lines and the seller's commission rate (a fraction in [0,1], validated at
// seller-record mutation time; the calculator trusts its input).
type Group struct {
	SellerID   uuid.UUID
	GrossCents int
	Rate       decimal.Decimal
}

// Allocation is the platform fee split for one seller group. FeeCents+NetCents
// always equals GrossCents exactly; rounding residue lands in the fee, never
// in the seller's net.
type Allocation struct {
	SellerID   uuid.UUID
	GrossCents int
	FeeCents   int
	NetCents   int
}

var oneHundred = decimal.NewFromInt(100)

// Allocate computes the fee allocation for a single seller group. The fee is
// rounded half away from zero at the currency's minor unit.
func Allocate(g Group) Allocation {
	fee := decimal.NewFromInt(int64(g.GrossCents)).Mul(g.Rate).Round(0)
	feeCents := int(fee.IntPart())
	if feeCents > g.GrossCents {
		feeCents = g.GrossCents
	}
	if feeCents < 0 {
		feeCents = 0
	}
	return Allocation{
		SellerID:   g.SellerID,
		GrossCents: g.GrossCents,
		FeeCents:   feeCents,
		NetCents:   g.GrossCents - feeCents,
	}
}

// AllocateAll computes allocations for each group independently. Rounding in
// one group never leaks into another.
func AllocateAll(groups []Group) []Allocation {
	allocations := make([]Allocation, 0, len(groups))
	for _, g := range groups {
		allocations = append(allocations, Allocate(g))
	}
	return allocations
}

// DistributeFee spreads a group-level fee across the group's lines using
// largest-remainder apportionment, so per-line fees sum exactly to feeCents
// and no line's fee exceeds its gross.
func DistributeFee(lineGrossCents []int, feeCents int) []int {
	fees := make([]int, len(lineGrossCents))
	if len(lineGrossCents) == 0 || feeCents <= 0 {
		return fees
	}

	total := 0
	for _, gross := range lineGrossCents {
		total += gross
	}
	if total <= 0 {
		return fees
	}

	type remainder struct {
		index int
		frac  decimal.Decimal
	}

	assigned := 0
	remainders := make([]remainder, 0, len(lineGrossCents))
	feeDec := decimal.NewFromInt(int64(feeCents))
	totalDec := decimal.NewFromInt(int64(total))
	for i, gross := range lineGrossCents {
		exact := feeDec.Mul(decimal.NewFromInt(int64(gross))).Div(totalDec)
		floor := exact.Floor()
		fees[i] = int(floor.IntPart())
		assigned += fees[i]
		remainders = append(remainders, remainder{index: i, frac: exact.Sub(floor)})
	}

	// Hand out the leftover cents to the lines with the largest fractional
	// parts, keeping each line's fee within its gross.
	leftover := feeCents - assigned
	for leftover > 0 {
		best := -1
		for j, r := range remainders {
			if fees[r.index] >= lineGrossCents[r.index] {
				continue
			}
			if best == -1 || r.frac.GreaterThan(remainders[best].frac) {
				best = j
			}
		}
		if best == -1 {
			break
		}
		fees[remainders[best].index]++
		remainders[best].frac = decimal.Zero
		leftover--
	}

	return fees
}

// ValidRate reports whether a commission rate lies in [0,1]. Enforced when a
// seller record is created or mutated, not at calculation time.
func ValidRate(rate decimal.Decimal) bool {
	return rate.GreaterThanOrEqual(decimal.Zero) && rate.LessThanOrEqual(decimal.NewFromInt(1))
}

// RateFromPercent converts a human-entered percentage (e.g. 15) to a fraction.
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(oneHundred)
}
