package estimator

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// paramReader pulls typed options out of Params, remembering the first error
// and which keys were consumed so unknown options can be rejected.
type paramReader struct {
	p    Params
	used map[string]bool
	err  error
}

func newParamReader(p Params) *paramReader {
	return &paramReader{p: p, used: make(map[string]bool)}
}

func (r *paramReader) fail(name, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: param %q: %s", ErrInvalidInput, name, fmt.Sprintf(format, args...))
	}
}

// raw returns the value for name. A JSON null counts as absent.
func (r *paramReader) raw(name string) (any, bool) {
	r.used[name] = true
	v, ok := r.p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *paramReader) floatVal(name string, def float64) float64 {
	v, ok := r.raw(name)
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail(name, "expected a number, got %v", v)
		return def
	}
	return f
}

func (r *paramReader) intVal(name string, def int) int {
	if p := r.intPtr(name); p != nil {
		return *p
	}
	return def
}

// intPtr returns nil when the option is absent or null.
func (r *paramReader) intPtr(name string) *int {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		r.fail(name, "expected an integer, got %v", v)
		return nil
	}
	n := int(f)
	return &n
}

func (r *paramReader) boolVal(name string, def bool) bool {
	v, ok := r.raw(name)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(name, "expected a boolean, got %v", v)
		return def
	}
	return b
}

func (r *paramReader) strVal(name, def string, allowed ...string) string {
	v, ok := r.raw(name)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, "expected a string, got %v", v)
		return def
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	r.fail(name, "unsupported value %q (allowed: %s)", s, strings.Join(allowed, ", "))
	return def
}

// ignore accepts an option without using it.
func (r *paramReader) ignore(names ...string) {
	for _, n := range names {
		r.used[n] = true
	}
}

func (r *paramReader) finish() error {
	if r.err != nil {
		return r.err
	}
	var unknown []string
	for k := range r.p {
		if !r.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown params: %s", ErrInvalidInput, strings.Join(unknown, ", "))
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
