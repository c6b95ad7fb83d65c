package order

import (
	"math"

	"alphapilot/pkg/exchanges/common"
)

// Heuristic lot grids tried when no instrument metadata is available,
// finest first.
var fallbackGrids = []float64{0.001, 0.01, 0.1, 1.0}

// Normalizer rounds raw quantities onto exchange lot-size rules so the
// venue never rejects an order for step-size violations.
type Normalizer struct{}

// NewNormalizer creates a quantity normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize snaps qty to the instrument's lot grid, at least one lot and
// never below the minimum size. With a nil instrument it falls back to
// grid heuristics. Normalizing an already normalized quantity returns it
// unchanged.
func (n *Normalizer) Normalize(qty float64, inst *common.Instrument) float64 {
	if qty <= 0 {
		return 0
	}
	if inst != nil && inst.LotSize > 0 {
		steps := math.Round(qty / inst.LotSize)
		if steps < 1 {
			steps = 1
		}
		out := roundTo(steps*inst.LotSize, decimalsOf(inst.LotSize))
		if inst.MinSize > 0 && out < inst.MinSize {
			out = inst.MinSize
		}
		return out
	}
	return n.heuristic(qty)
}

// NormalizeClose sizes a position-reducing order: capped at the live
// position and floored onto the grid so the close never overshoots.
func (n *Normalizer) NormalizeClose(qty, positionQty float64, inst *common.Instrument) float64 {
	if positionQty <= 0 || qty <= 0 {
		return 0
	}
	if qty > positionQty {
		qty = positionQty
	}
	if inst != nil && inst.LotSize > 0 {
		steps := math.Floor(qty/inst.LotSize + 1e-9)
		if steps < 1 {
			return 0
		}
		return roundTo(steps*inst.LotSize, decimalsOf(inst.LotSize))
	}
	out := n.heuristic(qty)
	if out > positionQty {
		out = roundTo(positionQty, 8)
	}
	return out
}

// heuristic guesses a lot grid from the quantity's magnitude: the first
// grid whose nearest multiple deviates under 10% wins. Quantities between
// 0.02 and 0.03 always use the 0.01 grid, common for BTC swaps.
func (n *Normalizer) heuristic(qty float64) float64 {
	if qty >= 0.02 && qty <= 0.03 {
		steps := math.Round(qty / 0.01)
		return roundTo(steps*0.01, 2)
	}

	for _, grid := range fallbackGrids {
		steps := math.Round(qty / grid)
		if steps < 1 {
			continue
		}
		cand := steps * grid
		if math.Abs(cand-qty)/qty <= 0.10 {
			return roundTo(cand, decimalsOf(grid))
		}
	}

	// Nothing fit; round by magnitude.
	switch {
	case qty < 1:
		return roundTo(qty, 3)
	case qty < 100:
		return roundTo(qty, 2)
	default:
		return roundTo(qty, 1)
	}
}

func decimalsOf(step float64) int {
	switch {
	case step >= 1:
		return 0
	case step >= 0.1:
		return 1
	case step >= 0.01:
		return 2
	case step >= 0.001:
		return 3
	default:
		return 8
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
