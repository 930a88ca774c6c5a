package estimator

import (
	"fmt"
	"math"
	"sort"
)

// normLabel maps a target value to a comparable class label. Numbers become
// float64 so 1 and 1.0 name the same class and survive a JSON round trip.
func normLabel(v any) (any, error) {
	switch t := v.(type) {
	case string, bool:
		return t, nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported class label %v (%T)", ErrInvalidInput, v, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: class label is not finite", ErrInvalidInput)
		}
		return f, nil
	}
}

// labelRank orders label types: bools, then numbers, then strings.
func labelRank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case float64:
		return 1
	default:
		return 2
	}
}

func labelLess(a, b any) bool {
	ra, rb := labelRank(a), labelRank(b)
	if ra != rb {
		return ra < rb
	}
	switch x := a.(type) {
	case bool:
		return !x && b.(bool)
	case float64:
		return x < b.(float64)
	case string:
		return x < b.(string)
	}
	return false
}

// encodeLabels returns the sorted distinct classes of y and the class index of
// every sample.
func encodeLabels(y []any) (classes []any, idx []int, err error) {
	norm := make([]any, len(y))
	seen := make(map[any]struct{})
	for i, v := range y {
		l, err := normLabel(v)
		if err != nil {
			return nil, nil, fmt.Errorf("y[%d]: %w", i, err)
		}
		norm[i] = l
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return labelLess(classes[i], classes[j]) })
	pos := make(map[any]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	idx = make([]int, len(norm))
	for i, l := range norm {
		idx[i] = pos[l]
	}
	return classes, idx, nil
}

// regressionTargets converts y into an n x k matrix. Scalars give k=1;
// array-valued targets give multi-output regression.
func regressionTargets(y []any) (targets [][]float64, multi bool, err error) {
	targets = make([][]float64, len(y))
	width := -1
	for i, v := range y {
		var row []float64
		switch t := v.(type) {
		case []any:
			multi = true
			row = make([]float64, len(t))
			for j, e := range t {
				f, ok := toFloat(e)
				if !ok {
					return nil, false, fmt.Errorf("%w: y[%d][%d] is not a number", ErrInvalidInput, i, j)
				}
				row[j] = f
			}
		case []float64:
			multi = true
			row = append([]float64(nil), t...)
		default:
			f, ok := toFloat(v)
			if !ok {
				return nil, false, fmt.Errorf("%w: y[%d] is not a number", ErrInvalidInput, i)
			}
			row = []float64{f}
		}
		for j, f := range row {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, false, fmt.Errorf("%w: y[%d][%d] is not finite", ErrInvalidInput, i, j)
			}
		}
		if width >= 0 && len(row) != width {
			return nil, false, fmt.Errorf("%w: y[%d] has %d outputs, expected %d", ErrInvalidInput, i, len(row), width)
		}
		width = len(row)
		targets[i] = row
	}
	if width == 0 {
		return nil, false, fmt.Errorf("%w: y rows are empty", ErrInvalidInput)
	}
	return targets, multi, nil
}
