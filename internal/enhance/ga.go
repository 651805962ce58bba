package enhance

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/pkg/types"
)

const mutationSigma = 0.1

type Individual struct {
	Curve   Curve
	Fitness float64
}

// Evolution is the outcome of a GA run.
type Evolution struct {
	Best    Individual
	Initial float64   // fitness of the identity curve
	History []float64 // best fitness after each generation
}

// Evolve searches for the transfer curve maximizing Fitness on hist. The
// result depends only on its arguments.
func Evolve(ctx context.Context, hist *[256]float64, cfg types.AlgorithmConfig, seed uint64) (*Evolution, error) {
	if err := config.ValidateAlgorithm(cfg); err != nil {
		return nil, err
	}
	factory, err := Get(cfg.Selection)
	if err != nil {
		return nil, err
	}
	selector := factory(cfg)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	evaluate := func(c Curve) Individual {
		return Individual{Curve: c, Fitness: Fitness(hist, c.LUT())}
	}

	population := make([]Individual, cfg.PopulationSize)
	population[0] = evaluate(IdentityCurve())
	for i := 1; i < len(population); i++ {
		population[i] = evaluate(RandomCurve(rng))
	}
	sortByFitness(population)

	evolution := &Evolution{
		Best:    population[0],
		Initial: Fitness(hist, IdentityCurve().LUT()),
		History: make([]float64, 0, cfg.Generations),
	}

	elites := min(cfg.ElitismCount, cfg.PopulationSize)
	next := make([]Individual, 0, cfg.PopulationSize)
	for range cfg.Generations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next = append(next[:0], population[:elites]...)
		for len(next) < cfg.PopulationSize {
			first := selector.Select(population, rng)
			second := selector.Select(population, rng)
			child := crossover(first.Curve, second.Curve, cfg.CrossoverRate, rng)
			mutate(&child, cfg.MutationRate, rng)
			next = append(next, evaluate(child))
		}
		population, next = next, population
		sortByFitness(population)

		if population[0].Fitness > evolution.Best.Fitness {
			evolution.Best = population[0]
		}
		evolution.History = append(evolution.History, evolution.Best.Fitness)
	}
	return evolution, nil
}

// crossover is one-point: genes before the cut come from a, the rest from b.
func crossover(a, b Curve, rate float64, rng *rand.Rand) Curve {
	child := a
	if rng.Float64() < rate {
		cut := 1 + rng.IntN(ControlPoints-1)
		copy(child[cut:], b[cut:])
		child.normalize()
	}
	return child
}

// mutate adds gaussian noise to each gene with probability rate.
func mutate(c *Curve, rate float64, rng *rand.Rand) {
	mutated := false
	for i := range c {
		if rng.Float64() < rate {
			c[i] += rng.NormFloat64() * mutationSigma
			mutated = true
		}
	}
	if mutated {
		c.normalize()
	}
}

func sortByFitness(population []Individual) {
	slices.SortStableFunc(population, func(a, b Individual) int {
		return cmp.Compare(b.Fitness, a.Fitness)
	})
}
