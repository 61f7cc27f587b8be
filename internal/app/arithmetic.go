package app

import (
	"fmt"
	"math"
	"math/bits"
)

// platformFeePercent is the platform share of every settled prize pool.
const platformFeePercent uint64 = 10

func addUint64Checked(a uint64, b uint64, field string) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, ErrInvariant.Wrapf("%s overflows uint64", field)
	}
	return a + b, nil
}

// percentOf returns floor(amount*pct/100) without intermediate overflow.
func percentOf(amount uint64, pct uint64) uint64 {
	if amount == 0 || pct == 0 {
		return 0
	}
	hi, lo := bits.Mul64(amount, pct)
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// splitPrizePool returns the platform cut and the winner's prize. They always
// sum to pool; the platform share is the one rounded down.
func splitPrizePool(pool uint64) (platformCut, winnerPrize uint64) {
	platformCut = percentOf(pool, platformFeePercent)
	return platformCut, pool - platformCut
}

func addInt64AndU64Checked(base int64, delta uint64, field string) (int64, error) {
	if delta > math.MaxInt64 {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	d := int64(delta)
	if base > 0 && d > math.MaxInt64-base {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	return base + d, nil
}
