package enhance

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// Selector picks a parent from a population sorted by descending fitness.
type Selector interface {
	Select(population []Individual, rng *rand.Rand) Individual
}

type SelectorFactory func(cfg types.AlgorithmConfig) Selector

var registry = make(map[types.Selection]SelectorFactory)

func init() {
	for name, factory := range map[types.Selection]SelectorFactory{
		types.SelectionTournament: func(cfg types.AlgorithmConfig) Selector { return tournament{size: cfg.TournamentPressure} },
		types.SelectionWheel:      func(types.AlgorithmConfig) Selector { return wheel{} },
		types.SelectionRanking:    func(types.AlgorithmConfig) Selector { return ranking{} },
	} {
		if err := Register(name, factory); err != nil {
			panic(err)
		}
	}
}

func Register(name types.Selection, factory SelectorFactory) error {
	if _, exists := registry[name]; exists {
		return fmt.Errorf("selection already registered: %s", name)
	}
	registry[name] = factory
	return nil
}

func Get(name types.Selection) (SelectorFactory, error) {
	factory, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("selection not found: %s", name)
	}
	return factory, nil
}

func List() []string {
	var names []string
	for name := range registry {
		names = append(names, string(name))
	}
	slices.Sort(names)
	return names
}

// tournament returns the fittest of size individuals drawn with replacement.
type tournament struct {
	size int
}

func (t tournament) Select(population []Individual, rng *rand.Rand) Individual {
	best := rng.IntN(len(population))
	for range max(t.size, 1) - 1 {
		// Lower index means fitter.
		best = min(best, rng.IntN(len(population)))
	}
	return population[best]
}

// wheel is fitness-proportional (roulette) selection.
type wheel struct{}

func (wheel) Select(population []Individual, rng *rand.Rand) Individual {
	var total float64
	for _, ind := range population {
		total += max(ind.Fitness, 0)
	}
	if total == 0 {
		return population[rng.IntN(len(population))]
	}

	target := rng.Float64() * total
	for _, ind := range population {
		target -= max(ind.Fitness, 0)
		if target < 0 {
			return ind
		}
	}
	return population[len(population)-1]
}

// ranking is linear rank selection: the i-th fittest of n has weight n-i.
type ranking struct{}

func (ranking) Select(population []Individual, rng *rand.Rand) Individual {
	n := len(population)
	total := n * (n + 1) / 2
	target := rng.IntN(total)
	for i := range population {
		target -= n - i
		if target < 0 {
			return population[i]
		}
	}
	return population[n-1]
}
