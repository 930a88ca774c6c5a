package estimator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// randomForest is a bagged ensemble of CART classification trees split on
// Gini impurity. Prediction averages the per-tree class distributions.
type randomForest struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        *int   `json:"max_depth,omitempty"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     string `json:"max_features"`
	Bootstrap       bool   `json:"bootstrap"`
	RandomState     *int   `json:"random_state,omitempty"`
	NJobs           int    `json:"n_jobs,omitempty"`

	Classes  []any  `json:"classes,omitempty"`
	Features int    `json:"features"`
	Trees    []tree `json:"trees,omitempty"`
}

// tree is stored flat so it serializes compactly. Node 0 is the root.
type tree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Feature   int       `json:"f"` // -1 marks a leaf
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"` // class distribution, leaves only
}

func newRandomForest(r *paramReader) *randomForest {
	f := &randomForest{
		NEstimators:     r.intVal("n_estimators", 100),
		MaxDepth:        r.intPtr("max_depth"),
		MinSamplesSplit: r.intVal("min_samples_split", 2),
		MinSamplesLeaf:  r.intVal("min_samples_leaf", 1),
		Bootstrap:       r.boolVal("bootstrap", true),
		RandomState:     r.intPtr("random_state"),
		NJobs:           r.intVal("n_jobs", 0),
	}
	r.strVal("criterion", "gini", "gini")
	r.ignore("verbose", "warm_start")
	f.MaxFeatures = "sqrt"
	if v, ok := r.raw("max_features"); ok {
		switch t := v.(type) {
		case string:
			if t != "sqrt" && t != "log2" {
				r.fail("max_features", "unsupported value %q (allowed: sqrt, log2)", t)
			}
			f.MaxFeatures = t
		default:
			n, ok := toFloat(v)
			if !ok || n <= 0 {
				r.fail("max_features", "expected sqrt, log2, a positive count or a fraction")
			}
			f.MaxFeatures = fmt.Sprint(n)
		}
	} else if _, present := r.p["max_features"]; present {
		f.MaxFeatures = "all"
	}
	if f.NEstimators <= 0 || f.NEstimators > MaxEstimators {
		r.fail("n_estimators", "must be between 1 and %d", MaxEstimators)
	}
	if f.MaxDepth != nil && *f.MaxDepth <= 0 {
		r.fail("max_depth", "must be positive or null")
	}
	if f.MinSamplesSplit < 2 {
		r.fail("min_samples_split", "must be at least 2")
	}
	if f.MinSamplesLeaf < 1 {
		r.fail("min_samples_leaf", "must be at least 1")
	}
	return f
}

func (f *randomForest) Kind() Kind       { return KindRandomForest }
func (f *randomForest) NumFeatures() int { return f.Features }

// featuresPerSplit resolves max_features against d columns. Whole numbers are
// counts, values in (0,1) are fractions.
func (f *randomForest) featuresPerSplit(d int) int {
	var n int
	switch f.MaxFeatures {
	case "sqrt":
		n = int(math.Sqrt(float64(d)))
	case "log2":
		n = int(math.Log2(float64(d)))
	case "all", "":
		n = d
	default:
		var v float64
		if _, err := fmt.Sscan(f.MaxFeatures, &v); err != nil {
			n = d
		} else if v < 1 {
			n = int(v * float64(d))
		} else {
			n = int(v)
		}
	}
	return min(max(n, 1), d)
}

func (f *randomForest) Fit(X [][]float64, y []any) error {
	if err := CheckXY(X, y); err != nil {
		return err
	}
	classes, idx, err := encodeLabels(y)
	if err != nil {
		return err
	}
	var seed uint64
	if f.RandomState != nil {
		seed = uint64(*f.RandomState)
	} else {
		seed = uint64(time.Now().UnixNano())
	}
	master := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	b := &treeBuilder{
		X:        X,
		y:        idx,
		classes:  len(classes),
		maxFeat:  f.featuresPerSplit(len(X[0])),
		minSplit: f.MinSamplesSplit,
		minLeaf:  f.MinSamplesLeaf,
		maxDepth: math.MaxInt,
	}
	if f.MaxDepth != nil {
		b.maxDepth = *f.MaxDepth
	}

	trees := make([]tree, f.NEstimators)
	var g errgroup.Group
	limit := f.NJobs
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			sample := make([]int, len(X))
			for j := range sample {
				if f.Bootstrap {
					sample[j] = rng.IntN(len(X))
				} else {
					sample[j] = j
				}
			}
			trees[i] = b.build(sample, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Classes = classes
	f.Features = len(X[0])
	f.Trees = trees
	return nil
}

func (f *randomForest) Predict(X [][]float64) ([]any, error) {
	if f.Features == 0 || len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := CheckX(X, f.Features); err != nil {
		return nil, err
	}
	out := make([]any, len(X))
	proba := make([]float64, len(f.Classes))
	for i, x := range X {
		for k := range proba {
			proba[k] = 0
		}
		for _, t := range f.Trees {
			for k, p := range t.leaf(x) {
				proba[k] += p
			}
		}
		best := 0
		for k := 1; k < len(proba); k++ {
			if proba[k] > proba[best] {
				best = k
			}
		}
		out[i] = f.Classes[best]
	}
	return out, nil
}

func (t tree) leaf(x []float64) []float64 {
	n := 0
	for t.Nodes[n].Feature >= 0 {
		node := t.Nodes[n]
		if x[node.Feature] <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
	return t.Nodes[n].Value
}

// treeBuilder is shared read-only across goroutines; all per-tree state lives
// in build's locals.
type treeBuilder struct {
	X        [][]float64
	y        []int
	classes  int
	maxFeat  int
	minSplit int
	minLeaf  int
	maxDepth int
}

func (b *treeBuilder) build(sample []int, rng *rand.Rand) tree {
	t := tree{}
	b.grow(&t, sample, 0, rng)
	return t
}

func (b *treeBuilder) counts(sample []int) []float64 {
	c := make([]float64, b.classes)
	for _, i := range sample {
		c[b.y[i]]++
	}
	return c
}

// grow appends the subtree for sample and returns its node index.
func (b *treeBuilder) grow(t *tree, sample []int, depth int, rng *rand.Rand) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Feature: -1})
	counts := b.counts(sample)

	if depth >= b.maxDepth || len(sample) < b.minSplit || len(sample) < 2*b.minLeaf || gini(counts, float64(len(sample))) == 0 {
		t.Nodes[id].Value = normalize(counts)
		return id
	}
	feature, threshold, ok := b.bestSplit(sample, counts, rng)
	if !ok {
		t.Nodes[id].Value = normalize(counts)
		return id
	}
	var left, right []int
	for _, i := range sample {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		t.Nodes[id].Value = normalize(counts)
		return id
	}
	l := b.grow(t, left, depth+1, rng)
	r := b.grow(t, right, depth+1, rng)
	t.Nodes[id] = treeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

// bestSplit scans maxFeat randomly chosen features for the threshold with the
// lowest weighted child impurity.
func (b *treeBuilder) bestSplit(sample []int, total []float64, rng *rand.Rand) (int, float64, bool) {
	n := float64(len(sample))
	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := append([]int(nil), sample...)
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)
	for _, feature := range rng.Perm(len(b.X[0]))[:b.maxFeat] {
		sort.Slice(order, func(i, j int) bool { return b.X[order[i]][feature] < b.X[order[j]][feature] })
		for k := range left {
			left[k] = 0
			right[k] = total[k]
		}
		for pos := 0; pos < len(order)-1; pos++ {
			c := b.y[order[pos]]
			left[c]++
			right[c]--
			nl := float64(pos + 1)
			v, next := b.X[order[pos]][feature], b.X[order[pos+1]][feature]
			if v == next || pos+1 < b.minLeaf || len(order)-pos-1 < b.minLeaf {
				continue
			}
			score := nl*gini(left, nl) + (n-nl)*gini(right, n-nl)
			if score < bestScore {
				bestScore = score
				bestFeature = feature
				bestThreshold = midpoint(v, next)
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// midpoint returns a threshold t with v <= t < next. For adjacent floats the
// halfway point rounds up to next, so v is used instead.
func midpoint(v, next float64) float64 {
	t := v/2 + next/2
	if t < v || t >= next {
		return v
	}
	return t
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	s := 1.0
	for _, c := range counts {
		p := c / n
		s -= p * p
	}
	return s
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}
