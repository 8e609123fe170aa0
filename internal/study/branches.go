package study

import "github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"

// MaxBranches bounds the number of discrete label combinations one study
// enumerates. Every branch runs its own optimizer.
const MaxBranches = 4096

// BranchCount returns the size of the Cartesian product of labelSets. It
// fails with a config error when a set is empty or the product exceeds
// MaxBranches; the check runs before any multiplication can overflow.
func BranchCount(labelSets [][]string) (int, error) {
	total := 1
	for i, set := range labelSets {
		if len(set) == 0 {
			return 0, optimization.NewConfigError("discrete parameter %d has no labels", i).
				WithComponent("study").WithOperation("BranchCount")
		}
		if total > MaxBranches/len(set) {
			return 0, optimization.NewConfigError("%d discrete parameters give more than %d branches",
				len(labelSets), MaxBranches).WithComponent("study").WithOperation("BranchCount")
		}
		total *= len(set)
	}
	return total, nil
}

// Branches enumerates the Cartesian product of the discrete label sets in
// lexicographic order, the last set varying fastest. A space without
// discrete parameters has exactly one empty branch.
func Branches(labelSets [][]string) ([][]string, error) {
	total, err := BranchCount(labelSets)
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, total)
	idx := make([]int, len(labelSets))
	for {
		branch := make([]string, len(labelSets))
		for i, set := range labelSets {
			branch[i] = set[idx[i]]
		}
		out = append(out, branch)

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(labelSets[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out, nil
		}
	}
}
