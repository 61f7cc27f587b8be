// Package rating implements the integer ELO update used at settlement.
//
// All arithmetic is fixed-point with a scale of 1000 and floor division, so
// results are bit-identical on every node.
package rating

const (
	KFactor uint64 = 32
	Scale   uint64 = 1000

	half        = Scale / 2
	spreadRange = 400
)

// Expected returns the winner's expected score in [0, Scale].
//
// This is a linear approximation, not the logistic curve. When the winner is
// the underdog and the rating gap pushes the deduction past 500, the expected
// score drops straight to 0 rather than saturating smoothly.
func Expected(winner, loser uint64) uint64 {
	if winner >= loser {
		e := half + (winner-loser)*half/spreadRange
		if e > Scale {
			return Scale
		}
		return e
	}
	d := (loser - winner) * half / spreadRange
	if d > half {
		return 0
	}
	return half - d
}

// Update returns the post-game ratings for a decisive result.
func Update(winner, loser uint64) (newWinner, newLoser uint64) {
	exp := Expected(winner, loser)
	gain := KFactor * (Scale - exp) / Scale
	loss := KFactor * exp / Scale

	newWinner = winner + gain
	if loser > loss {
		newLoser = loser - loss
	}
	return newWinner, newLoser
}
