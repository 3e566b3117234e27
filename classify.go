package nbc

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Algorithm selects the classification strategy.
type Algorithm string

const (
	AlgorithmAuto     Algorithm = "auto"
	AlgorithmBrute    Algorithm = "brute"
	AlgorithmDualTree Algorithm = "dualtree"
)

// Config controls nonparametric Bayes classification behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// BandwidthPos is the Epanechnikov kernel bandwidth for the positive
	// class. Must be > 0. No default; the right value depends on the data
	// scale.
	BandwidthPos float64

	// BandwidthNeg is the kernel bandwidth for the negative class.
	// Must be > 0.
	BandwidthNeg float64

	// Threshold is the posterior certainty required to label a query
	// positive. Must lie in (0, 1). Queries whose class cannot be
	// certified either way are labeled unknown. Default: 0.5.
	Threshold float64

	// Algorithm selects the strategy. "auto" uses the dual-tree traversal;
	// "brute" evaluates every pair (O(n·m), useful for verification);
	// "dualtree" forces the pruned traversal. Default: "auto".
	Algorithm Algorithm

	// LeafSize controls the maximum number of points in a tree leaf node.
	// Only used by the dual-tree algorithm. Default: 40.
	LeafSize int

	// Workers controls the number of goroutines for the parallelizable
	// stages (query-subtree traversal, brute-force rows). 0 means use
	// runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// Logger receives run-level traversal statistics at Debug level.
	// Default: zap.NewNop().
	Logger *zap.Logger
}

// DefaultConfig returns a Config with reasonable defaults. Bandwidths must
// still be set by the caller.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.5,
		Algorithm: AlgorithmAuto,
		LeafSize:  40,
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive
// error if not.
func validateConfig(cfg *Config) error {
	if cfg.BandwidthPos <= 0 {
		return errors.Errorf("nbc: BandwidthPos must be > 0, got %g", cfg.BandwidthPos)
	}
	if cfg.BandwidthNeg <= 0 {
		return errors.Errorf("nbc: BandwidthNeg must be > 0, got %g", cfg.BandwidthNeg)
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return errors.Errorf("nbc: Threshold must be in (0, 1), got %g", cfg.Threshold)
	}
	switch cfg.Algorithm {
	case AlgorithmAuto, AlgorithmBrute, AlgorithmDualTree:
		// valid
	default:
		return errors.Errorf("nbc: invalid Algorithm %q", cfg.Algorithm)
	}
	if cfg.LeafSize < 1 {
		return errors.Errorf("nbc: LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// Result contains the output of a classification run.
type Result struct {
	// Labels holds the outcome per query point: LabelPos, LabelNeg, or
	// LabelEither when neither class could be certified.
	Labels []Label

	// DensityPos and DensityNeg are the per-query normalized class density
	// estimates. Exact when the point's recursion ran to completion;
	// best-known partial sums when pruning certified the label early.
	DensityPos []float64
	DensityNeg []float64

	// CountPos and CountUnknown are the run-level outcome counters.
	CountPos     int
	CountUnknown int
}

// PercentPos returns the share of queries labeled positive, in percent.
func (r *Result) PercentPos() float64 {
	if len(r.Labels) == 0 {
		return 0
	}
	return float64(r.CountPos) / float64(len(r.Labels)) * 100
}

// PercentUnknown returns the share of queries left unknown, in percent.
func (r *Result) PercentUnknown() float64 {
	if len(r.Labels) == 0 {
		return 0
	}
	return float64(r.CountUnknown) / float64(len(r.Labels)) * 100
}

// Classify labels every query point by comparing its positive and negative
// class posterior densities against the threshold. refData carries the
// labeled reference population (refPos gives each point's class); queryData
// carries the points to label, each with a positive-class prior in priors.
//
// Returns an error for invalid configuration or inconsistent inputs before
// any traversal begins; traversal-time errors indicate internal consistency
// defects and terminate the run.
func Classify(refData [][]float64, refPos []bool, queryData [][]float64, priors []float64, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	nRef := len(refData)
	nQuery := len(queryData)
	if nRef == 0 {
		return nil, errors.New("nbc: reference set is empty")
	}
	if len(refPos) != nRef {
		return nil, errors.Errorf("nbc: refPos length %d does not match reference count %d", len(refPos), nRef)
	}
	if len(priors) != nQuery {
		return nil, errors.Errorf("nbc: priors length %d does not match query count %d", len(priors), nQuery)
	}

	dims := len(refData[0])
	if dims == 0 {
		return nil, errors.New("nbc: reference points have zero dimensions")
	}

	refFlat, err := flatten(refData, dims, "reference")
	if err != nil {
		return nil, err
	}
	queryFlat, err := flatten(queryData, dims, "query")
	if err != nil {
		return nil, err
	}
	for i, pi := range priors {
		if pi < 0 || pi > 1 {
			return nil, errors.Errorf("nbc: prior %d is %g, must be in [0, 1]", i, pi)
		}
	}

	countPos := 0
	for _, pos := range refPos {
		if pos {
			countPos++
		}
	}

	params := NewParams(NewEpanKernel(cfg.BandwidthPos), NewEpanKernel(cfg.BandwidthNeg), cfg.Threshold, dims)
	if err := params.ComputeConsts(countPos, nRef-countPos); err != nil {
		return nil, err
	}

	if nQuery == 0 {
		return &Result{
			Labels:     []Label{},
			DensityPos: []float64{},
			DensityNeg: []float64{},
		}, nil
	}

	var results []PointResult
	var global GlobalResult

	switch cfg.Algorithm {
	case AlgorithmBrute:
		results, global, err = classifyBrute(refFlat, refPos, nRef, queryFlat, priors, nQuery, dims, params, cfg.Workers)
	default:
		// AlgorithmAuto, AlgorithmDualTree: pruned traversal.
		rt := NewKDTree(refFlat, nRef, dims, refPos, nil, cfg.LeafSize)
		qt := NewKDTree(queryFlat, nQuery, dims, nil, priors, cfg.LeafSize)
		eng := newEngine(params, newClassifierPolicy(params), qt, rt, cfg.Workers, cfg.Logger)
		global, err = eng.run()
		results = eng.results
	}
	if err != nil {
		return nil, err
	}

	out := &Result{
		Labels:       make([]Label, nQuery),
		DensityPos:   make([]float64, nQuery),
		DensityNeg:   make([]float64, nQuery),
		CountPos:     global.CountPos,
		CountUnknown: global.CountUnknown,
	}
	normPos := params.KernelPos.NormConstant(dims) * float64(params.CountPos)
	normNeg := params.KernelNeg.NormConstant(dims) * float64(params.CountNeg)
	for i := range results {
		out.Labels[i] = results[i].Label
		out.DensityPos[i] = results[i].DensityPos / normPos
		out.DensityNeg[i] = results[i].DensityNeg / normNeg
	}

	cfg.Logger.Debug("classification complete",
		zap.Int("queries", nQuery),
		zap.Int("references", nRef),
		zap.Int("count_pos", out.CountPos),
		zap.Int("count_unknown", out.CountUnknown),
		zap.Float64("percent_pos", out.PercentPos()),
		zap.Float64("percent_unknown", out.PercentUnknown()))

	return out, nil
}

// flatten copies row-slices into a flat row-major array, checking that every
// row has the expected dimensionality.
func flatten(data [][]float64, dims int, what string) ([]float64, error) {
	flat := make([]float64, len(data)*dims)
	for i, row := range data {
		if len(row) != dims {
			return nil, errors.Errorf("nbc: %s point %d has %d dimensions, want %d", what, i, len(row), dims)
		}
		copy(flat[i*dims:], row)
	}
	return flat, nil
}
