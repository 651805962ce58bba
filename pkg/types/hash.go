package types

import (
	"fmt"
	"hash/fnv"
)

func Hash(value string) uint32 {
	hash := fnv.New32a()
	hash.Write([]byte(value))
	return hash.Sum32()
}

// Seed derives a deterministic RNG seed for a job, so the same image with the
// same settings always evolves the same way no matter which worker runs it.
func Seed(inputPath string, cfg AlgorithmConfig) uint64 {
	settings := fmt.Sprintf("%s/%d/%d", cfg.Selection, cfg.PopulationSize, cfg.Generations)
	return uint64(Hash(inputPath))<<32 | uint64(Hash(settings))
}
