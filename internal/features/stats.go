package features

import (
	"math"
	"sort"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd returns the sample standard deviation (N−1 denominator, matching
// the usual statistical-library convention) or nil when fewer than two
// samples exist — a one-element group has an undefined spread, not zero.
func sampleStd(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(values)-1))
	return &std
}

// quantileLinear computes the p-quantile of values using linear interpolation
// between closest order statistics: with the values sorted ascending and
// h = (n−1)·p, the result is x[⌊h⌋] + (h−⌊h⌋)·(x[⌊h⌋+1]−x[⌊h⌋]). The method
// is fixed so the high-value boundary is reproducible across runs.
func quantileLinear(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// stableMode returns the most frequent value; ties are broken by whichever
// value was encountered first in slice order. Callers must therefore pass
// values in original table order.
func stableMode(values []string) string {
	type entry struct {
		count int
		first int
	}
	counts := make(map[string]*entry, len(values))
	for i, v := range values {
		if e, ok := counts[v]; ok {
			e.count++
		} else {
			counts[v] = &entry{count: 1, first: i}
		}
	}

	var best string
	bestEntry := &entry{count: 0, first: len(values)}
	for v, e := range counts {
		if e.count > bestEntry.count || (e.count == bestEntry.count && e.first < bestEntry.first) {
			best = v
			bestEntry = e
		}
	}
	return best
}
