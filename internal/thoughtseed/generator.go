package thoughtseed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/sampler"
)

// Generator produces a population of thoughtseeds from a feature configuration.
// It draws from a single random source and is not safe for concurrent use.
type Generator struct {
	features  config.FeatureConfig
	count     int
	weights   CostWeights
	sampler   *sampler.Sampler
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewGenerator creates a generator for count thoughtseeds. The feature
// configuration must define every required feature and the firing-cost weights.
func NewGenerator(features config.FeatureConfig, count int, rng *rand.Rand, logger *slog.Logger) (*Generator, error) {
	if err := features.Validate(); err != nil {
		return nil, err
	}
	weights, err := CostWeightsFrom(features)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("thoughtseed count must be non-negative, got %d", count)
	}
	return &Generator{
		features: features,
		count:    count,
		weights:  weights,
		sampler:  sampler.New(rng),
		logger:   logging.OrDiscard(logger),
	}, nil
}

// SetDecisionLogger attaches a decision trace for skipped thoughtseeds.
func (g *Generator) SetDecisionLogger(dl *logging.DecisionLogger) {
	g.decisions = dl
}

// Generate creates the population. A thoughtseed whose sampling or encoding
// fails is logged and skipped. Once every thoughtseed exists each one
// receives its own firing cost as an energy bump.
func (g *Generator) Generate(ctx context.Context) ([]*Thoughtseed, error) {
	seeds := make([]*Thoughtseed, 0, g.count)
	skipped := 0
	for i := 0; i < g.count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed, err := g.generateOne()
		if err != nil {
			skipped++
			g.logger.Warn("skipping thoughtseed", "index", i, "error", err)
			g.decisions.SeedSkipped(i, err)
			continue
		}
		seeds = append(seeds, seed)
	}

	for i, seed := range seeds {
		cost, err := seed.FiringCost(g.weights, g.sampler.Noise(constants.FiringCostNoiseStdDev))
		if err != nil {
			return nil, fmt.Errorf("firing cost for thoughtseed %d: %w", i, err)
		}
		seed.EnergyLevel += cost
	}

	g.logger.Info("generated thoughtseeds", "count", len(seeds), "skipped", skipped)
	return seeds, nil
}

func (g *Generator) generateOne() (*Thoughtseed, error) {
	values := NewFeatureValues(g.features.Len())
	for _, f := range g.features.Features() {
		v, err := g.sampler.Draw(f.Distribution)
		if err != nil {
			return nil, fmt.Errorf("sampling %s: %w", f.Name, err)
		}
		values.Set(f.Name, v)
	}

	pattern, err := EncodeMemoryPattern(
		values.Value(constants.FeatureComplexity),
		values.Value(constants.FeatureValence),
		g.sampler.Byte(),
		g.sampler.Byte(),
	)
	if err != nil {
		return nil, err
	}
	return New(values, pattern), nil
}
