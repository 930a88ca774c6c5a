package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// logisticRegression is L2-regularised logistic regression. Two classes use
// the sigmoid form with a single coefficient row; more classes use a softmax
// over one row per class. The objective is
//
//	C * sum(log-loss) + 0.5 * ||W||^2
//
// minimised with L-BFGS. The intercept is not penalised.
type logisticRegression struct {
	C            float64     `json:"C"`
	MaxIter      int         `json:"max_iter"`
	Tol          float64     `json:"tol"`
	FitIntercept bool        `json:"fit_intercept"`
	Classes      []any       `json:"classes,omitempty"`
	Coef         [][]float64 `json:"coef,omitempty"` // [row][feature]
	Intercept    []float64   `json:"intercept,omitempty"`
	Features     int         `json:"features"`
	Iterations   int         `json:"iterations"`
}

func newLogisticRegression(r *paramReader) *logisticRegression {
	lr := &logisticRegression{
		C:            r.floatVal("C", 1.0),
		MaxIter:      r.intVal("max_iter", 100),
		Tol:          r.floatVal("tol", 1e-4),
		FitIntercept: r.boolVal("fit_intercept", true),
	}
	r.strVal("solver", "lbfgs", "lbfgs")
	r.strVal("penalty", "l2", "l2")
	r.ignore("random_state", "n_jobs", "verbose", "warm_start")
	if lr.C <= 0 {
		r.fail("C", "must be positive")
	}
	if lr.MaxIter <= 0 || lr.MaxIter > MaxIterations {
		r.fail("max_iter", "must be between 1 and %d", MaxIterations)
	}
	if lr.Tol < 0 {
		r.fail("tol", "must not be negative")
	}
	return lr
}

func (lr *logisticRegression) Kind() Kind       { return KindLogReg }
func (lr *logisticRegression) NumFeatures() int { return lr.Features }

// logisticProblem holds the training data for one optimisation run. Parameters
// are laid out row-major: rows x (d weights + 1 intercept).
type logisticProblem struct {
	X         [][]float64
	y         []int
	rows, d   int
	c         float64
	intercept bool
}

func (p *logisticProblem) stride() int { return p.d + 1 }

func (p *logisticProblem) z(theta []float64, row int, x []float64) float64 {
	off := row * p.stride()
	v := floats.Dot(theta[off:off+p.d], x)
	if p.intercept {
		v += theta[off+p.d]
	}
	return v
}

// objective returns the loss and, when grad is non-nil, writes its gradient.
func (p *logisticProblem) objective(theta, grad []float64) float64 {
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	s := p.stride()
	loss := 0.0
	zs := make([]float64, p.rows)
	for i, x := range p.X {
		if p.rows == 1 {
			z := p.z(theta, 0, x)
			sign := -1.0
			if p.y[i] == 1 {
				sign = 1
			}
			loss += softplus(-sign * z)
			if grad != nil {
				// d/dz log(1+exp(-s z)) = -s * sigmoid(-s z)
				g := -sign * sigmoid(-sign*z) * p.c
				floats.AddScaled(grad[:p.d], g, x)
				if p.intercept {
					grad[p.d] += g
				}
			}
			continue
		}
		for k := 0; k < p.rows; k++ {
			zs[k] = p.z(theta, k, x)
		}
		lse := logSumExp(zs)
		loss += lse - zs[p.y[i]]
		if grad != nil {
			for k := 0; k < p.rows; k++ {
				g := math.Exp(zs[k] - lse)
				if k == p.y[i] {
					g--
				}
				g *= p.c
				off := k * s
				floats.AddScaled(grad[off:off+p.d], g, x)
				if p.intercept {
					grad[off+p.d] += g
				}
			}
		}
	}
	loss *= p.c
	for k := 0; k < p.rows; k++ {
		w := theta[k*s : k*s+p.d]
		loss += 0.5 * floats.Dot(w, w)
		if grad != nil {
			floats.Add(grad[k*s:k*s+p.d], w)
		}
	}
	return loss
}

func (lr *logisticRegression) Fit(X [][]float64, y []any) error {
	if err := CheckXY(X, y); err != nil {
		return err
	}
	classes, idx, err := encodeLabels(y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return fmt.Errorf("%w: logistic regression needs samples of at least 2 classes, got %d", ErrInvalidInput, len(classes))
	}
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	p := &logisticProblem{X: X, y: idx, rows: rows, d: len(X[0]), c: lr.C, intercept: lr.FitIntercept}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 { return p.objective(theta, nil) },
		Grad: func(grad, theta []float64) { p.objective(theta, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIter,
		GradientThreshold: lr.Tol,
	}
	init := make([]float64, rows*p.stride())
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil || len(result.X) != len(init) {
		return fmt.Errorf("logistic regression: %w", err)
	}
	// A line-search failure near the optimum still leaves a usable point.
	theta := result.X

	lr.Classes = classes
	lr.Coef = make([][]float64, rows)
	lr.Intercept = make([]float64, rows)
	for k := 0; k < rows; k++ {
		off := k * p.stride()
		lr.Coef[k] = append([]float64(nil), theta[off:off+p.d]...)
		if lr.FitIntercept {
			lr.Intercept[k] = theta[off+p.d]
		}
	}
	lr.Features = p.d
	lr.Iterations = result.MajorIterations
	return nil
}

func (lr *logisticRegression) Predict(X [][]float64) ([]any, error) {
	if lr.Features == 0 {
		return nil, ErrNotFitted
	}
	if err := CheckX(X, lr.Features); err != nil {
		return nil, err
	}
	out := make([]any, len(X))
	for i, x := range X {
		if len(lr.Coef) == 1 {
			if floats.Dot(lr.Coef[0], x)+lr.Intercept[0] > 0 {
				out[i] = lr.Classes[1]
			} else {
				out[i] = lr.Classes[0]
			}
			continue
		}
		best, bestZ := 0, math.Inf(-1)
		for k, coef := range lr.Coef {
			if z := floats.Dot(coef, x) + lr.Intercept[k]; z > bestZ {
				best, bestZ = k, z
			}
		}
		out[i] = lr.Classes[best]
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func logSumExp(z []float64) float64 {
	m := floats.Max(z)
	s := 0.0
	for _, v := range z {
		s += math.Exp(v - m)
	}
	return m + math.Log(s)
}
