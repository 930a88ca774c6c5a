package estimator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// linearRegression is ordinary least squares. With an intercept the data are
// centered first, so the intercept is not shrunk by the minimum-norm solve.
type linearRegression struct {
	FitIntercept bool        `json:"fit_intercept"`
	Coef         [][]float64 `json:"coef,omitempty"` // [output][feature]
	Intercept    []float64   `json:"intercept,omitempty"`
	MultiOutput  bool        `json:"multi_output"`
	Features     int         `json:"features"`
}

func newLinearRegression(r *paramReader) *linearRegression {
	lr := &linearRegression{FitIntercept: r.boolVal("fit_intercept", true)}
	if r.boolVal("positive", false) {
		r.fail("positive", "constrained least squares is not supported")
	}
	r.ignore("copy_X", "n_jobs")
	return lr
}

func (lr *linearRegression) Kind() Kind       { return KindLinear }
func (lr *linearRegression) NumFeatures() int { return lr.Features }

func (lr *linearRegression) Fit(X [][]float64, y []any) error {
	if err := CheckXY(X, y); err != nil {
		return err
	}
	targets, multi, err := regressionTargets(y)
	if err != nil {
		return err
	}
	n, d, k := len(X), len(X[0]), len(targets[0])

	xMean := make([]float64, d)
	yMean := make([]float64, k)
	if lr.FitIntercept {
		for i := 0; i < n; i++ {
			floats.Add(xMean, X[i])
			floats.Add(yMean, targets[i])
		}
		floats.Scale(1/float64(n), xMean)
		floats.Scale(1/float64(n), yMean)
	}

	a := mat.NewDense(n, d, nil)
	b := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			a.Set(i, j, X[i][j]-xMean[j])
		}
		for j := 0; j < k; j++ {
			b.Set(i, j, targets[i][j]-yMean[j])
		}
	}

	w := mat.NewDense(d, k, nil)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return errors.New("linear regression: SVD did not converge")
	}
	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(n, d))
	if rank := svd.Rank(rcond); rank > 0 {
		svd.SolveTo(w, b, rank)
	}

	lr.Coef = make([][]float64, k)
	lr.Intercept = make([]float64, k)
	for j := 0; j < k; j++ {
		lr.Coef[j] = mat.Col(nil, j, w)
		lr.Intercept[j] = yMean[j] - floats.Dot(xMean, lr.Coef[j])
	}
	lr.MultiOutput = multi
	lr.Features = d
	return nil
}

func (lr *linearRegression) Predict(X [][]float64) ([]any, error) {
	if lr.Features == 0 {
		return nil, ErrNotFitted
	}
	if err := CheckX(X, lr.Features); err != nil {
		return nil, err
	}
	out := make([]any, len(X))
	for i, row := range X {
		vals := make([]float64, len(lr.Coef))
		for j, coef := range lr.Coef {
			vals[j] = floats.Dot(row, coef) + lr.Intercept[j]
		}
		if lr.MultiOutput {
			out[i] = vals
		} else {
			out[i] = vals[0]
		}
	}
	return out, nil
}
