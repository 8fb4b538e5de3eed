package feat

import (
	"errors"
	"sync"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/kern"
	"github.com/lucasmaystre/sparsegp/utils"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/blas/blas64"
)

// KuuFunc computes the covariance among the inducing variables of f,
// without jitter.
type KuuFunc func(f Feature, k kern.Kernel) (blas64.Symmetric, error)

// KufFunc computes the covariance between the inducing variables of f and
// the function values at the rows of x.
type KufFunc func(f Feature, k kern.Kernel, x blas64.General) (blas64.General, error)

type pairing struct {
	feature Kind
	kernel  kern.Kind
}

type handler struct {
	kuu KuuFunc
	kuf KufFunc
}

var (
	registryMu sync.RWMutex
	registry   = map[pairing]handler{
		{KindInducingPoints, kern.KindAny}:            {pointsKuu, pointsKuf},
		{KindMultiscale, kern.KindSquaredExponential}: {multiscaleKuu, multiscaleKuf},
		{KindInducingPatch, kern.KindConvolutional}:   {patchKuu, patchKuf},
	}
)

// Register adds or replaces the formulas for a pairing. kern.KindAny
// matches every kernel that has no exact entry for the feature kind.
// Passing a nil function removes the pairing.
func Register(fk Kind, kk kern.Kind, kuu KuuFunc, kuf KufFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if kuu == nil || kuf == nil {
		delete(registry, pairing{fk, kk})
		return
	}
	registry[pairing{fk, kk}] = handler{kuu, kuf}
}

func lookup(op string, f Feature, k kern.Kernel) (handler, error) {
	if f == nil || k == nil {
		return handler{}, &errs.ParameterError{Op: op, Name: "feature or kernel", Value: nil}
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	if h, ok := registry[pairing{f.Kind(), k.Kind()}]; ok {
		return h, nil
	}
	if h, ok := registry[pairing{f.Kind(), kern.KindAny}]; ok {
		return h, nil
	}
	return handler{}, &errs.DispatchError{
		Op:      op,
		Feature: f.Kind().String(),
		Kernel:  k.Kind().String(),
	}
}

// Kuu returns the M×M prior covariance of the inducing variables plus
// jitter * I.
func Kuu(f Feature, k kern.Kernel, jitter float64) (blas64.Symmetric, error) {
	h, err := lookup("Kuu", f, k)
	if err != nil {
		return blas64.Symmetric{}, err
	}
	log.WithFields(log.Fields{
		"feature": f.Kind(),
		"kernel":  k.Kind(),
		"M":       f.Len(),
		"jitter":  jitter,
	}).Debug("computing Kuu")
	kuu, err := h.kuu(f, k)
	if err != nil {
		return blas64.Symmetric{}, err
	}
	if jitter == 0 {
		return kuu, nil
	}
	return utils.AddJitter(kuu, jitter)
}

// Kuf returns the M×N covariance between the inducing variables and the
// function values at the rows of x.
func Kuf(f Feature, k kern.Kernel, x blas64.General) (blas64.General, error) {
	h, err := lookup("Kuf", f, k)
	if err != nil {
		return blas64.General{}, err
	}
	log.WithFields(log.Fields{
		"feature": f.Kind(),
		"kernel":  k.Kind(),
		"M":       f.Len(),
		"N":       x.Rows,
	}).Debug("computing Kuf")
	return h.kuf(f, k, x)
}

// retag rewrites the operation and subject of a shape error coming from a
// kernel's Validate.
func retag(err error, op, what string) error {
	var shapeErr *errs.ShapeMismatchError
	if errors.As(err, &shapeErr) {
		return &errs.ShapeMismatchError{Op: op, What: what, Got: shapeErr.Got, Want: shapeErr.Want}
	}
	return err
}
