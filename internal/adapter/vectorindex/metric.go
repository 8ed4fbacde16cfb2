package vectorindex

import "math"

// Similarity scores two vectors under the given metric. Higher is always
// better; distance metrics are negated so ranking stays uniform.
func Similarity(metric string, a, b []float32) float64 {
	switch metric {
	case "ip":
		return dot(a, b)
	case "l2":
		return -l2Distance(a, b)
	default: // cosine
		return cosine(a, b)
	}
}

func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dp, na, nb float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dp / (math.Sqrt(na) * math.Sqrt(nb))
}

func l2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
