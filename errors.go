package nbc

import "github.com/pkg/errors"

// Sentinel errors. Label contradictions and empty-moment evaluations are
// internal consistency defects: they indicate the pruning logic combined two
// mutually exclusive pieces of evidence, and the run must fail fast rather
// than silently repair.
var (
	// ErrLabelContradiction is returned when narrowing a classification
	// label yields NEITHER.
	ErrLabelContradiction = errors.New("nbc: label narrowed to NEITHER")

	// ErrEmptyMoment is returned when a kernel-sum range is requested over
	// a moment with no points.
	ErrEmptyMoment = errors.New("nbc: kernel sum range over empty moment")
)
