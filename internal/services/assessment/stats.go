package assessment

import "math"

// finite keeps non-nil finite values.
func finite(xs []*float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x == nil || math.IsNaN(*x) || math.IsInf(*x, 0) {
			continue
		}
		out = append(out, *x)
	}
	return out
}

// Mean of the non-nil finite values, nil when there are none.
func Mean(xs []*float64) *float64 {
	a := finite(xs)
	if len(a) == 0 {
		return nil
	}
	m := sum(a) / float64(len(a))
	return &m
}

// SD is the sample standard deviation (n-1). It needs at least two values.
func SD(xs []*float64) *float64 {
	a := finite(xs)
	if len(a) < 2 {
		return nil
	}
	m := sum(a) / float64(len(a))
	v := 0.0
	for _, x := range a {
		v += (x - m) * (x - m)
	}
	s := math.Sqrt(v / float64(len(a)-1))
	return &s
}

func isFinite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

func sum(a []float64) float64 {
	s := 0.0
	for _, x := range a {
		s += x
	}
	return s
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// orZero reads a missing mean as zero.
func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// positive is true for a known, non-zero mean.
func positive(p *float64) bool { return p != nil && *p != 0 }
