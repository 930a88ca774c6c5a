// Package estimator implements the supervised-learning models served by fitd:
// linear regression, logistic regression and a random-forest classifier, plus
// the artifact codec used to persist them.
//
// Numerical work is delegated to gonum (mat, optimize, floats). The API mirrors
// the familiar Fit/Predict shape: construct with New, call Fit once, then call
// Predict any number of times. A fitted Estimator is read-only and safe for
// concurrent Predict calls.
package estimator

import (
	"errors"
	"fmt"
	"math"
)

// Kind selects the model family.
type Kind string

const (
	KindLogReg       Kind = "logreg"
	KindRandomForest Kind = "randf"
	KindLinear       Kind = "lr"
)

// Kinds lists the supported model kinds.
func Kinds() []Kind { return []Kind{KindLogReg, KindRandomForest, KindLinear} }

// Params are estimator options keyed by option name, as decoded from JSON.
type Params map[string]any

// Upper bounds on size parameters. Training runs in the server process, so an
// allocation failure there is fatal for every model, not just one job.
const (
	MaxEstimators = 10000
	MaxIterations = 100000
)

var (
	// ErrUnknownKind is returned by New for an unsupported model kind.
	ErrUnknownKind = errors.New("unknown model kind")
	// ErrInvalidInput marks bad parameters or badly shaped training/inference data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("estimator is not fitted")
)

// Estimator is a trainable model.
type Estimator interface {
	Kind() Kind
	// Fit trains the estimator on X (rows of equal length) and targets y.
	Fit(X [][]float64, y []any) error
	// Predict returns one output per row of X: a class label for classifiers,
	// a float64 for single-output regression or a []float64 for multi-output.
	Predict(X [][]float64) ([]any, error)
	// NumFeatures is the row width seen during Fit, 0 before.
	NumFeatures() int
}

// New constructs an unfitted estimator of the given kind. Parameters are
// validated eagerly so callers can reject bad requests before training.
func New(kind Kind, params Params) (Estimator, error) {
	r := newParamReader(params)
	var est Estimator
	switch kind {
	case KindLinear:
		est = newLinearRegression(r)
	case KindLogReg:
		est = newLogisticRegression(r)
	case KindRandomForest:
		est = newRandomForest(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return est, nil
}

// ParseKind validates a kind selector.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// CheckX validates a feature matrix: non-empty, rectangular, finite. When
// features > 0 the row width must match it.
func CheckX(X [][]float64, features int) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: X is empty", ErrInvalidInput)
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("%w: X rows are empty", ErrInvalidInput)
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: X row %d has %d features, expected %d", ErrInvalidInput, i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: X[%d][%d] is not finite", ErrInvalidInput, i, j)
			}
		}
	}
	if features > 0 && width != features {
		return fmt.Errorf("%w: X has %d features, model expects %d", ErrInvalidInput, width, features)
	}
	return nil
}

// CheckXY validates a training set.
func CheckXY(X [][]float64, y []any) error {
	if err := CheckX(X, 0); err != nil {
		return err
	}
	if len(y) != len(X) {
		return fmt.Errorf("%w: X has %d rows but y has %d", ErrInvalidInput, len(X), len(y))
	}
	return nil
}

// CheckTargets validates y for kind without fitting: regression targets must
// be numeric, class labels must be numbers, strings or bools, and logistic
// regression needs at least two classes.
func CheckTargets(kind Kind, y []any) error {
	switch kind {
	case KindLinear:
		_, _, err := regressionTargets(y)
		return err
	case KindLogReg, KindRandomForest:
		classes, _, err := encodeLabels(y)
		if err != nil {
			return err
		}
		if kind == KindLogReg && len(classes) < 2 {
			return fmt.Errorf("%w: logistic regression needs samples of at least 2 classes, got %d", ErrInvalidInput, len(classes))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}
