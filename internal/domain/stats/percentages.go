package stats

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percentages converts counts to one-decimal percentages using largest
// remainder adjustment: every bucket is rounded on its own, then the largest
// bucket absorbs the residual so the total is exactly 100.0. Ties on the
// largest bucket go to the lowest order.
func Percentages[K comparable](counts map[K]int, order func(K) int) map[K]float64 {
	out := make(map[K]float64, len(counts))

	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	if total == 0 {
		return out
	}

	denominator := decimal.NewFromInt(int64(total))
	rounded := make(map[K]decimal.Decimal, len(counts))
	sum := decimal.Zero

	var largest K
	largestCount := -1
	for k, c := range counts {
		if c <= 0 {
			continue
		}
		v := decimal.NewFromInt(int64(c)).Mul(hundred).Div(denominator).Round(1)
		rounded[k] = v
		sum = sum.Add(v)

		if c > largestCount || (c == largestCount && order(k) < order(largest)) {
			largest, largestCount = k, c
		}
	}

	rounded[largest] = rounded[largest].Add(hundred.Sub(sum))
	for k, v := range rounded {
		out[k] = v.InexactFloat64()
	}
	return out
}

// complement returns 100 - v at one decimal.
func complement(v float64) float64 {
	return hundred.Sub(decimal.NewFromFloat(v)).Round(1).InexactFloat64()
}

// SumPercentages adds percentage buckets without float drift.
func SumPercentages[K comparable](values map[K]float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.InexactFloat64()
}
