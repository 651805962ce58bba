package enhance

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const contrastWeight = 0.5

// Fitness scores a lookup table against an input histogram: the normalized
// Shannon entropy of the remapped histogram plus a weighted standard
// deviation term. Higher is better.
func Fitness(hist *[256]float64, lut [256]uint8) float64 {
	var remapped [256]float64
	var total float64
	for level, count := range hist {
		remapped[lut[level]] += count
		total += count
	}
	if total == 0 {
		return 0
	}

	probabilities := make([]float64, 0, len(remapped))
	levels := make([]float64, 0, len(remapped))
	weights := make([]float64, 0, len(remapped))
	for level, count := range remapped {
		if count == 0 {
			continue
		}
		probabilities = append(probabilities, count/total)
		levels = append(levels, float64(level))
		weights = append(weights, count)
	}

	entropy := stat.Entropy(probabilities) / math.Log(256)

	var spread float64
	if len(levels) > 1 {
		_, variance := stat.MeanVariance(levels, weights)
		spread = math.Sqrt(variance) / 127.5
	}
	return entropy + contrastWeight*spread
}
