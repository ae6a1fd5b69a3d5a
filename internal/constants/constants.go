// Package constants provides named constants used throughout the thoughtseed codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Feature names the core logic depends on. A feature configuration must define
// all four for firing-cost and tiering logic to work.
const (
	FeatureComplexity            = "Complexity"
	FeatureValence               = "Valence"
	FeatureManifestationStrength = "Manifestation Strength"
	FeatureActivationThreshold   = "Activation Threshold"
)

// RequiredFeatures lists the features every configuration must define.
var RequiredFeatures = []string{
	FeatureComplexity,
	FeatureValence,
	FeatureManifestationStrength,
	FeatureActivationThreshold,
}

// Thoughtseed energy and activation constants
const (
	// InitialEnergyLevel is the energy a freshly constructed thoughtseed starts with.
	InitialEnergyLevel = 0.5

	// DefaultActivationThreshold is the sigmoid(energy) level a thoughtseed must
	// exceed to count as activated.
	DefaultActivationThreshold = 0.8

	// FiringCostNoiseStdDev is the standard deviation of the Gaussian noise term
	// added to every firing cost.
	FiringCostNoiseStdDev = 0.1

	// FeatureValuePrecision is the number of decimal places sampled feature
	// values are rounded to before storage.
	FeatureValuePrecision = 4
)

// Memory pattern layout
const (
	// MemorySegmentBits is the width of a single memory pattern segment.
	MemorySegmentBits = 8

	// MemorySegments is the number of segments in a memory pattern.
	MemorySegments = 4

	// MemoryPatternLength is the total length of a memory pattern in bits.
	MemoryPatternLength = MemorySegmentBits * MemorySegments

	// MemorySegmentMax is the largest value a segment can hold.
	MemorySegmentMax = 1<<MemorySegmentBits - 1
)

// DefaultMaxThoughtseeds caps a population. A complete graph over n seeds
// stores three float64 weights per edge, about 300 MB at this size.
const DefaultMaxThoughtseeds = 5000

// Edge weighting constants.
// Valence weights are tiered by how far both endpoints sit from the valence mean.
const (
	ValenceWeightBothExtremeSame     = 16.0
	ValenceWeightBothExtremeOpposite = 0.0
	ValenceWeightOneExtremeSame      = 12.0
	ValenceWeightOneExtremeOpposite  = 1.0
	ValenceWeightEitherOutlier       = 5.0
	ValenceWeightBaseline            = 1.0

	// CompositeValenceShare is the share of the normalized valence weight in the
	// composite edge weight.
	CompositeValenceShare = 0.7

	// CompositeComplexityShare is the share of the normalized complexity weight in
	// the composite edge weight.
	CompositeComplexityShare = 0.3
)

// Thought pool constants
const (
	// DefaultPoolCapacity is the maximum number of thoughtsprouts in one pool.
	DefaultPoolCapacity = 7

	// DefaultSproutEnergyChange is the flat energy bump a thoughtseed receives
	// when it sprouts.
	DefaultSproutEnergyChange = 0.1
)

// Analytics constants
const (
	// DefaultPageRankDamping is the PageRank damping factor (alpha).
	DefaultPageRankDamping = 0.85

	// DefaultLouvainResolution is the modularity resolution used by Louvain
	// community detection.
	DefaultLouvainResolution = 1.125

	// LargeCommunitySize is the smallest community worth describing.
	LargeCommunitySize = 3
)
