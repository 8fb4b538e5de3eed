package kern

import (
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
)

var (
	sum *Sum
	_   Kernel = sum // Check that Sum respects the Kernel interface.
)

// Sum of kernels. Nested sums are flattened.
type Sum struct {
	parts []Kernel
}

func NewSum(first, second Kernel, more ...Kernel) *Sum {
	parts := make([]Kernel, 0, 2+len(more))
	for _, k := range append([]Kernel{first, second}, more...) {
		switch k := k.(type) {
		case *Sum:
			parts = append(parts, k.parts...)
		default:
			parts = append(parts, k)
		}
	}
	return &Sum{parts: parts}
}

func (k *Sum) Kind() Kind {
	return KindSum
}

func (k *Sum) Parts() []Kernel {
	return append([]Kernel(nil), k.parts...)
}

func (k *Sum) Validate(x blas64.General) error {
	for _, part := range k.parts {
		if err := part.Validate(x); err != nil {
			return err
		}
	}
	return nil
}

func (k *Sum) K(x, y blas64.General) blas64.General {
	out := k.parts[0].K(x, y)
	for _, part := range k.parts[1:] {
		addTo(out.Data, part.K(x, y).Data)
	}
	return out
}

func (k *Sum) KSym(x blas64.General) blas64.Symmetric {
	out := utils.Full(k.parts[0].KSym(x))
	for _, part := range k.parts[1:] {
		addTo(out.Data, utils.Full(part.KSym(x)).Data)
	}
	return utils.Symmetrize(out)
}

func (k *Sum) KDiag(x blas64.General) blas64.Vector {
	out := k.parts[0].KDiag(x)
	for _, part := range k.parts[1:] {
		addTo(out.Data, part.KDiag(x).Data)
	}
	return out
}

// Kernels in this module build compact outputs, so the backing slices line
// up element for element.
func addTo(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}
