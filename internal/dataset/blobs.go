package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// BlobsConfig describes isotropic Gaussian clusters.
type BlobsConfig struct {
	Samples  int
	Features int
	Centers  int
	// Spread is the standard deviation of every cluster.
	Spread float64
	// Box is the half-width of the cube the centres are drawn from.
	Box  float64
	Seed uint64
}

// Blobs generates a seeded synthetic classification dataset with one class
// per cluster. Samples are assigned to clusters round-robin.
func Blobs(cfg BlobsConfig) (*Dataset, error) {
	if cfg.Samples < 1 || cfg.Features < 1 || cfg.Centers < 1 {
		return nil, optimization.NewConfigError("blobs need positive samples, features and centers").
			WithComponent("dataset").WithOperation("Blobs")
	}
	if cfg.Spread <= 0 {
		cfg.Spread = 1
	}
	if cfg.Box <= 0 {
		cfg.Box = 10
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	centre := distuv.Uniform{Min: -cfg.Box, Max: cfg.Box, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Spread, Src: src}

	centres := mat.NewDense(cfg.Centers, cfg.Features, nil)
	for i := 0; i < cfg.Centers; i++ {
		for j := 0; j < cfg.Features; j++ {
			centres.Set(i, j, centre.Rand())
		}
	}

	X := mat.NewDense(cfg.Samples, cfg.Features, nil)
	y := make([]int, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		c := i % cfg.Centers
		y[i] = c
		for j := 0; j < cfg.Features; j++ {
			X.Set(i, j, centres.At(c, j)+noise.Rand())
		}
	}
	return New(X, y, nil)
}
