package dataset

import (
	"math/rand"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Fold is one train/test partition of sample indices.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold shuffles each class with a seeded generator and deals its
// samples round-robin into k test folds, so every fold keeps the class
// proportions of the whole dataset. Each class needs at least k samples.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	const op = "StratifiedKFold"

	if k < 2 {
		return nil, optimization.NewConfigError("need at least 2 folds, got %d", k).
			WithComponent("dataset").WithOperation(op)
	}
	if len(y) < k {
		return nil, optimization.NewConfigError("cannot split %d samples into %d folds", len(y), k).
			WithComponent("dataset").WithOperation(op)
	}

	byClass := map[int][]int{}
	var order []int
	for i, c := range y {
		if _, ok := byClass[c]; !ok {
			order = append(order, c)
		}
		byClass[c] = append(byClass[c], i)
	}

	rng := rand.New(rand.NewSource(seed))
	testSets := make([][]int, k)
	next := 0
	for _, c := range order {
		idx := byClass[c]
		if len(idx) < k {
			return nil, optimization.NewConfigError("class %d has %d samples, fewer than %d folds", c, len(idx), k).
				WithComponent("dataset").WithOperation(op)
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for _, i := range idx {
			testSets[next] = append(testSets[next], i)
			next = (next + 1) % k
		}
	}

	folds := make([]Fold, k)
	for f := range folds {
		inTest := make(map[int]bool, len(testSets[f]))
		for _, i := range testSets[f] {
			inTest[i] = true
		}
		train := make([]int, 0, len(y)-len(testSets[f]))
		for i := range y {
			if !inTest[i] {
				train = append(train, i)
			}
		}
		folds[f] = Fold{Train: train, Test: testSets[f]}
	}
	return folds, nil
}
