package providers

import "math"

// scaledRatio maps part/total onto [0, scale], rounded to nearest.
// Callers guarantee total > 0.
func scaledRatio(part, total, scale int) int {
	return int(math.Round(float64(scale) * float64(part) / float64(total)))
}
