package kern

import (
	"fmt"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
)

var stationaryOptions = map[string]bool{"lengthscales": true, "activeDims": true}

// Parameters shared by kernels depending on x - y only.
type stationary struct {
	variance float64
	lscales  []float64 // One per active dimension.
	ard      bool
	active   []int
	minCols  int // Columns an input needs, 1 + max(active).
}

func newStationary(name string, inputDim int, variance float64,
	allowed map[string]bool, opts []Option) (stationary, config) {
	if inputDim < 1 {
		panic(fmt.Sprintf("kern: %s input dimension must be positive, got %d", name, inputDim))
	}
	if !(variance > 0) {
		panic(fmt.Sprintf("kern: %s variance must be positive, got %v", name, variance))
	}
	cfg := gatherOptions(name, allowed, opts)
	active := cfg.activeDims
	if active == nil {
		active = make([]int, inputDim)
		for i := range active {
			active[i] = i
		}
	}
	if len(active) != inputDim {
		panic(fmt.Sprintf("kern: %s has input dimension %d but %d active dims",
			name, inputDim, len(active)))
	}
	s := stationary{variance: variance, active: active}
	for _, d := range active {
		s.minCols = max(s.minCols, d+1)
	}
	switch len(cfg.lengthscales) {
	case 1:
		s.lscales = make([]float64, inputDim)
		for i := range s.lscales {
			s.lscales[i] = cfg.lengthscales[0]
		}
	case inputDim:
		s.lscales = cfg.lengthscales
		s.ard = true
	default:
		panic(fmt.Sprintf("kern: %s needs 1 or %d lengthscales, got %d",
			name, inputDim, len(cfg.lengthscales)))
	}
	return s, cfg
}

func (s *stationary) Variance() float64 {
	return s.variance
}

// Lengthscales returns one value per active dimension, even when a single
// scalar lengthscale is shared.
func (s *stationary) Lengthscales() []float64 {
	return append([]float64(nil), s.lscales...)
}

func (s *stationary) ARD() bool {
	return s.ard
}

func (s *stationary) ActiveDims() []int {
	return append([]int(nil), s.active...)
}

func (s *stationary) Validate(x blas64.General) error {
	if x.Cols < s.minCols {
		return errs.Shape("Validate", "inputs", x.Rows, x.Cols, -1, s.minCols)
	}
	return nil
}

// Slice returns the active columns of x. x is returned as is when every
// column is active in order.
func (s *stationary) Slice(x blas64.General) blas64.General {
	if x.Cols == len(s.active) {
		identity := true
		for i, d := range s.active {
			if i != d {
				identity = false
				break
			}
		}
		if identity {
			return x
		}
	}
	return utils.SelectColumns(x, s.active)
}

// sum_d ((a_d - b_d) / l_d)^2 on already sliced rows.
func (s *stationary) scaledSqDist(a, b []float64) float64 {
	r2 := 0.0
	for d, l := range s.lscales {
		diff := (a[d] - b[d]) / l
		r2 += diff * diff
	}
	return r2
}
