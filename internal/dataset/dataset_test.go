package dataset

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

func TestNew(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	d, err := New(X, []int{0, 1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 2, d.NumFeatures())
	assert.Equal(t, []string{"0", "1"}, d.Classes)
	assert.Equal(t, []int{2, 1}, d.ClassCounts())

	tests := []struct {
		name    string
		X       *mat.Dense
		y       []int
		classes []string
	}{
		{"row mismatch", X, []int{0, 1}, nil},
		{"nil matrix", nil, nil, nil},
		{"negative class", X, []int{0, -1, 0}, nil},
		{"missing class label", X, []int{0, 2, 0}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.X, tt.y, tt.classes)
			assert.ErrorIs(t, err, optimization.ErrConfig)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	const data = `0.1, 1.5, 3, normal
0.2, 1.1, 4, fault
0.3, 1.0, 5, normal
0.4, 0.9, 6, degraded
`
	d, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, 3, d.NumFeatures())
	assert.Equal(t, []string{"normal", "fault", "degraded"}, d.Classes)
	assert.Equal(t, []int{0, 1, 0, 2}, d.Y)
	assert.Equal(t, 5.0, d.X.At(2, 2))
}

func TestLoadCSVHeaderAndDelimiter(t *testing.T) {
	const data = "a;b;label\n1;2;x\n3;4;y\n"
	d, err := LoadCSV(strings.NewReader(data), WithHeader(), WithComma(';'))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"x", "y"}, d.Classes)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"label only":   "a\nb\n",
		"not a number": "1,abc,x\n",
		"ragged":       "1,2,x\n1,x\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(data))
			assert.ErrorIs(t, err, optimization.ErrConfig)
		})
	}

	_, err := LoadCSVFile("/does/not/exist.csv")
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestBlobs(t *testing.T) {
	cfg := BlobsConfig{Samples: 60, Features: 3, Centers: 3, Spread: 0.5, Seed: 42}
	a, err := Blobs(cfg)
	require.NoError(t, err)
	b, err := Blobs(cfg)
	require.NoError(t, err)

	assert.Equal(t, 60, a.Len())
	assert.Equal(t, 3, a.NumClasses())
	assert.Equal(t, []int{20, 20, 20}, a.ClassCounts())
	assert.True(t, mat.Equal(a.X, b.X), "same seed, same data")

	cfg.Seed = 7
	c, err := Blobs(cfg)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.X, c.X))

	_, err = Blobs(BlobsConfig{})
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestShuffleAndSubset(t *testing.T) {
	d, err := Blobs(BlobsConfig{Samples: 20, Features: 2, Centers: 2, Seed: 1})
	require.NoError(t, err)

	s1 := d.Shuffle(DefaultSeed)
	s2 := d.Shuffle(DefaultSeed)
	assert.True(t, mat.Equal(s1.X, s2.X))
	assert.Equal(t, s1.Y, s2.Y)
	assert.Equal(t, d.ClassCounts(), s1.ClassCounts())

	sub := d.Subset([]int{3, 0})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, d.X.RawRowView(3), sub.X.RawRowView(0))
	assert.Equal(t, []int{d.Y[3], d.Y[0]}, sub.Y)

	assert.Equal(t, 0, d.Subset(nil).Len())
}

func TestStandardize(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	d, err := New(X, []int{0, 0, 1, 1}, nil)
	require.NoError(t, err)

	s := d.Standardize()
	col := mat.Col(nil, 0, s.X)
	mean := (col[0] + col[1] + col[2] + col[3]) / 4
	assert.InDelta(t, 0, mean, 1e-12)
	varSum := 0.0
	for _, v := range col {
		varSum += v * v
	}
	assert.InDelta(t, 1, varSum/4, 1e-12)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, s.X))
	assert.Equal(t, 1.0, X.At(0, 0), "input untouched")
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 0, 50)
	for i := 0; i < 30; i++ {
		y = append(y, 0)
	}
	for i := 0; i < 20; i++ {
		y = append(y, 1)
	}

	folds, err := StratifiedKFold(y, 5, DefaultSeed)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	var allTest []int
	for _, f := range folds {
		assert.Len(t, f.Test, 10)
		assert.Len(t, f.Train, 40)

		counts := map[int]int{}
		for _, i := range f.Test {
			counts[y[i]]++
		}
		assert.Equal(t, 6, counts[0])
		assert.Equal(t, 4, counts[1])

		seen := map[int]bool{}
		for _, i := range f.Train {
			seen[i] = true
		}
		for _, i := range f.Test {
			assert.False(t, seen[i], "test index %d also in train", i)
		}
		allTest = append(allTest, f.Test...)
	}

	sort.Ints(allTest)
	for i, v := range allTest {
		assert.Equal(t, i, v, "every sample is tested exactly once")
	}

	again, err := StratifiedKFold(y, 5, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, folds, again)
}

func TestStratifiedKFoldErrors(t *testing.T) {
	_, err := StratifiedKFold([]int{0, 1, 0, 1}, 1, 0)
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = StratifiedKFold([]int{0, 1}, 3, 0)
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = StratifiedKFold([]int{0, 0, 0, 1}, 2, 0)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

