// Package feat holds the inducing-variable representations and the
// dispatch engine computing Kuu and Kuf for a (feature, kernel) pairing.
//
// Features carry no covariance logic of their own: every formula lives in
// the registry, keyed by the pair of variant tags.
package feat

import (
	"math"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/kern"
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
)

// Kind tags a feature variant for dispatch.
type Kind int

const (
	KindInducingPoints Kind = iota + 1
	KindMultiscale
	KindInducingPatch
)

func (k Kind) String() string {
	switch k {
	case KindInducingPoints:
		return "InducingPoints"
	case KindMultiscale:
		return "Multiscale"
	case KindInducingPatch:
		return "InducingPatch"
	}
	return "Unknown"
}

type Feature interface {
	Kind() Kind

	// Number of inducing variables M.
	Len() int

	// Inducing locations, M rows. Callers must not modify the result.
	Z() blas64.General
}

var (
	inducingPoints *InducingPoints
	multiscale     *Multiscale
	inducingPatch  *InducingPatch
	_              Feature = inducingPoints
	_              Feature = multiscale
	_              Feature = inducingPatch
)

// InducingPoints are exact inducing locations in input space.
type InducingPoints struct {
	z blas64.General
}

// NewInducingPoints copies z, one location per row.
func NewInducingPoints(z blas64.General) *InducingPoints {
	return &InducingPoints{z: utils.Clone(z)}
}

func (f *InducingPoints) Kind() Kind        { return KindInducingPoints }
func (f *InducingPoints) Len() int          { return f.z.Rows }
func (f *InducingPoints) Z() blas64.General { return f.z }

// Multiscale inducing features: each location is smoothed by a Gaussian
// whose per-dimension width is given by its scales. Zero scales are
// equivalent to InducingPoints.
type Multiscale struct {
	z      blas64.General
	scales blas64.General
}

// NewMultiscale copies z and scales, which must have the same shape and
// hold non-negative scales.
func NewMultiscale(z, scales blas64.General) (*Multiscale, error) {
	if z.Rows != scales.Rows || z.Cols != scales.Cols {
		return nil, errs.Shape("NewMultiscale", "scales", scales.Rows, scales.Cols, z.Rows, z.Cols)
	}
	for i := 0; i < scales.Rows; i++ {
		for _, s := range utils.Row(scales, i) {
			if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
				return nil, &errs.ParameterError{Op: "NewMultiscale", Name: "scale", Value: s}
			}
		}
	}
	return &Multiscale{z: utils.Clone(z), scales: utils.Clone(scales)}, nil
}

func (f *Multiscale) Kind() Kind        { return KindMultiscale }
func (f *Multiscale) Len() int          { return f.z.Rows }
func (f *Multiscale) Z() blas64.General { return f.z }

// Per-location smoothing scales, same shape as Z. Callers must not modify
// the result.
func (f *Multiscale) Scales() blas64.General { return f.scales }

// InducingPatch features are inducing locations in patch space, for use
// with a convolutional kernel. Each inducing variable is the base
// process evaluated at one patch.
type InducingPatch struct {
	z blas64.General
}

// NewInducingPatch copies z, one flattened patch per row.
func NewInducingPatch(z blas64.General) *InducingPatch {
	return &InducingPatch{z: utils.Clone(z)}
}

// NewInducingPatchFromImages uses every patch of every image as an
// inducing patch, so Len is images.Rows * k.NumPatches().
func NewInducingPatchFromImages(k *kern.Convolutional, images blas64.General) (*InducingPatch, error) {
	if err := k.Validate(images); err != nil {
		return nil, retag(err, "NewInducingPatchFromImages", "images")
	}
	return &InducingPatch{z: k.Patches(images)}, nil
}

func (f *InducingPatch) Kind() Kind        { return KindInducingPatch }
func (f *InducingPatch) Len() int          { return f.z.Rows }
func (f *InducingPatch) Z() blas64.General { return f.z }
