package feat_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/feat"
	"github.com/lucasmaystre/sparsegp/kern"
	"github.com/lucasmaystre/sparsegp/settings"
	"github.com/lucasmaystre/sparsegp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

func randn(rng *rand.Rand, r, c int) blas64.General {
	g := utils.NewGeneral(r, c)
	for i := range g.Data {
		g.Data[i] = rng.NormFloat64()
	}
	return g
}

func randu(rng *rand.Rand, r, c int) blas64.General {
	g := utils.NewGeneral(r, c)
	for i := range g.Data {
		g.Data[i] = rng.Float64()
	}
	return g
}

func mustMultiscale(t *testing.T, z, scales blas64.General) *feat.Multiscale {
	t.Helper()
	f, err := feat.NewMultiscale(z, scales)
	require.NoError(t, err)
	return f
}

func TestFeatureLen(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	z := randn(rng, 17, 3)
	require.Equal(t, 17, feat.NewInducingPoints(z).Len())
	require.Equal(t, 17, mustMultiscale(t, z, utils.NewGeneral(17, 3)).Len())

	conv := kern.NewConvolutional(kern.NewSquaredExponential(4, 1.0), [2]int{4, 4}, [2]int{2, 2})
	images := randn(rng, 10, 16)
	patches, err := feat.NewInducingPatchFromImages(conv, images)
	require.NoError(t, err)
	require.Equal(t, 10*conv.NumPatches(), patches.Len())
	require.Equal(t, conv.PatchDim(), patches.Z().Cols)

	_, err = feat.NewInducingPatchFromImages(conv, randn(rng, 2, 15))
	require.ErrorIs(t, err, errs.ErrShape)
}

func TestFeaturesCopyLocations(t *testing.T) {
	z := utils.GeneralFrom(2, 1, []float64{1, 2})
	f := feat.NewInducingPoints(z)
	z.Data[0] = 100
	require.Equal(t, 1.0, f.Z().Data[0])
}

func TestInducingPointsMatchKernel(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	z := randn(rng, 101, 3)
	f := feat.NewInducingPoints(z)
	kernels := []kern.Kernel{
		kern.NewSquaredExponential(3, 0.46, kern.WithLengthscales(0.143, 1.84, 2.0)),
		kern.NewSquaredExponential(3, 0.46, kern.WithLengthscales(0.5)),
		kern.NewPeriodic(3, 1.8, kern.WithPeriod(0.4)),
	}
	for _, k := range kernels {
		kuu, err := feat.Kuu(f, k, 0)
		require.NoError(t, err)
		require.InDeltaSlice(t, k.KSym(z).Data, kuu.Data, 1e-12, k.Kind().String())
	}
}

func TestMultiscaleZeroScalesEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	// Two active dims out of three columns.
	rbf := kern.NewSquaredExponential(2, 1.3441, kern.WithLengthscales(0.3414, 1.234))
	z := randn(rng, 23, 3)
	ms := mustMultiscale(t, z, utils.NewGeneral(23, 3))
	ip := feat.NewInducingPoints(z)
	x := randn(rng, 13, 3)

	msKuf, err := feat.Kuf(ms, rbf, x)
	require.NoError(t, err)
	ipKuf, err := feat.Kuf(ip, rbf, x)
	require.NoError(t, err)
	requireRelClose(t, ipKuf.Data, msKuf.Data, 1e-3)

	msKuu, err := feat.Kuu(ms, rbf, 0)
	require.NoError(t, err)
	ipKuu, err := feat.Kuu(ip, rbf, 0)
	require.NoError(t, err)
	requireRelClose(t, ipKuu.Data, msKuu.Data, 1e-3)
}

func requireRelClose(t *testing.T, want, got []float64, rel float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if want[i] == 0 {
			require.Equal(t, 0.0, got[i])
			continue
		}
		require.LessOrEqual(t, math.Abs(got[i]-want[i])/math.Abs(want[i]), rel, "index %d", i)
	}
}

func TestMultiscaleSmoothingLowersCovariance(t *testing.T) {
	// Smoothing both locations widens the effective lengthscale and lowers
	// the peak covariance at zero distance.
	rbf := kern.NewSquaredExponential(1, 2.0)
	z := utils.GeneralFrom(1, 1, []float64{0})
	ms := mustMultiscale(t, z, utils.GeneralFrom(1, 1, []float64{1}))
	kuu, err := feat.Kuu(ms, rbf, 0)
	require.NoError(t, err)
	// c^2 = 2^2 + 2^2 - 1 = 7.
	require.InDelta(t, 2.0/math.Sqrt(7), kuu.Data[0], 1e-12)

	kuf, err := feat.Kuf(ms, rbf, utils.GeneralFrom(1, 1, []float64{2}))
	require.NoError(t, err)
	require.InDelta(t, 2.0*0.5*math.Exp(-0.5), kuf.Data[0], 1e-12)
}

func TestSchurComplementIsPSD(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := randn(rng, 13, 2)
	type pairing struct {
		name string
		f    feat.Feature
		k    kern.Kernel
	}
	ms := mustMultiscale(t, randn(rng, 71, 2), randu(rng, 71, 2))
	pairings := []pairing{
		{"points/se", feat.NewInducingPoints(randn(rng, 71, 2)),
			kern.NewSquaredExponential(2, 1.84, kern.WithLengthscales(0.143, 1.53))},
		{"points/matern12", feat.NewInducingPoints(randn(rng, 71, 2)),
			kern.NewMatern12(2, 1.84, kern.WithLengthscales(0.143, 1.53))},
		{"multiscale/se", ms,
			kern.NewSquaredExponential(2, 1.84, kern.WithLengthscales(0.143, 1.53))},
	}
	for _, p := range pairings {
		kuu, err := feat.Kuu(p.f, p.k, settings.JitterLevel())
		require.NoError(t, err, p.name)
		kuf, err := feat.Kuf(p.f, p.k, x)
		require.NoError(t, err, p.name)
		kff := p.k.KSym(x)

		var chol mat.Cholesky
		require.True(t, chol.Factorize(utils.SymDense(kuu)), p.name)
		var sol, qff mat.Dense
		require.NoError(t, chol.SolveTo(&sol, utils.Dense(kuf)))
		qff.Mul(utils.Dense(kuf).T(), &sol)

		schur := utils.NewGeneral(x.Rows, x.Rows)
		for i := 0; i < x.Rows; i++ {
			for j := 0; j < x.Rows; j++ {
				schur.Data[i*schur.Stride+j] = kff.Data[i*kff.Stride+j] - qff.At(i, j)
			}
		}
		v, ok := utils.MinEigenvalue(utils.Symmetrize(schur))
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, -1e-8, p.name)
	}
}

func TestPatchAndPointCovariancesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	conv := kern.NewConvolutional(kern.NewSquaredExponential(4, 1.0), [2]int{4, 4}, [2]int{2, 2})
	p := conv.NumPatches()
	s := conv.Scale()
	images := randn(rng, 3, 16)
	x := randn(rng, 5, 16)

	points := feat.NewInducingPoints(images)
	patches, err := feat.NewInducingPatchFromImages(conv, images)
	require.NoError(t, err)

	pointKuf, err := feat.Kuf(points, conv, x)
	require.NoError(t, err)
	patchKuf, err := feat.Kuf(patches, conv, x)
	require.NoError(t, err)
	require.Equal(t, 3*p, patchKuf.Rows)
	require.Equal(t, 5, patchKuf.Cols)
	// Summing inducing patches of an image recovers that image's row.
	for m := 0; m < images.Rows; m++ {
		for n := 0; n < x.Rows; n++ {
			sum := 0.0
			for q := 0; q < p; q++ {
				sum += patchKuf.Data[(m*p+q)*patchKuf.Stride+n]
			}
			assert.InDelta(t, pointKuf.Data[m*pointKuf.Stride+n], s*sum, 1e-12)
		}
	}

	pointKuu, err := feat.Kuu(points, conv, 0)
	require.NoError(t, err)
	patchKuu, err := feat.Kuu(patches, conv, 0)
	require.NoError(t, err)
	require.Equal(t, 3*p, patchKuu.N)
	for a := 0; a < images.Rows; a++ {
		for b := 0; b < images.Rows; b++ {
			sum := 0.0
			for i := 0; i < p; i++ {
				for j := 0; j < p; j++ {
					sum += patchKuu.Data[(a*p+i)*patchKuu.Stride+b*p+j]
				}
			}
			assert.InDelta(t, pointKuu.Data[a*pointKuu.Stride+b], s*s*sum, 1e-12)
		}
	}
}

func TestEmptyFeature(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	x := randn(rng, 4, 2)
	rbf := kern.NewSquaredExponential(2, 1.0)
	features := []feat.Feature{
		feat.NewInducingPoints(utils.NewGeneral(0, 2)),
		mustMultiscale(t, utils.NewGeneral(0, 2), utils.NewGeneral(0, 2)),
	}
	for _, f := range features {
		require.Equal(t, 0, f.Len())
		kuu, err := feat.Kuu(f, rbf, 1e-6)
		require.NoError(t, err)
		require.Equal(t, 0, kuu.N)
		kuf, err := feat.Kuf(f, rbf, x)
		require.NoError(t, err)
		require.Equal(t, 0, kuf.Rows)
		require.Equal(t, 4, kuf.Cols)
	}

	conv := kern.NewConvolutional(kern.NewSquaredExponential(4, 1.0), [2]int{3, 3}, [2]int{2, 2})
	patches := feat.NewInducingPatch(utils.NewGeneral(0, 4))
	kuf, err := feat.Kuf(patches, conv, randn(rng, 2, 9))
	require.NoError(t, err)
	require.Equal(t, 0, kuf.Rows)
	require.Equal(t, 2, kuf.Cols)
}

func TestEmptyQuery(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := feat.NewInducingPoints(randn(rng, 3, 2))
	kuf, err := feat.Kuf(f, kern.NewMatern52(2, 1.0), utils.NewGeneral(0, 2))
	require.NoError(t, err)
	require.Equal(t, 3, kuf.Rows)
	require.Equal(t, 0, kuf.Cols)
}

func TestUnsupportedPairings(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	z := randn(rng, 4, 4)
	ms := mustMultiscale(t, z, randu(rng, 4, 4))
	patches := feat.NewInducingPatch(z)
	cases := []struct {
		f feat.Feature
		k kern.Kernel
	}{
		{ms, kern.NewPeriodic(4, 1.0)},
		{ms, kern.NewMatern32(4, 1.0)},
		{ms, kern.NewSum(kern.NewSquaredExponential(4, 1.0), kern.NewConstant(4, 1.0))},
		{patches, kern.NewSquaredExponential(4, 1.0)},
	}
	for _, c := range cases {
		_, err := feat.Kuu(c.f, c.k, 0)
		require.ErrorIs(t, err, errs.ErrDispatch)
		var dispatchErr *errs.DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		require.Equal(t, c.f.Kind().String(), dispatchErr.Feature)
		require.Equal(t, c.k.Kind().String(), dispatchErr.Kernel)

		_, err = feat.Kuf(c.f, c.k, z)
		require.ErrorIs(t, err, errs.ErrDispatch)
	}

	_, err := feat.Kuu(nil, kern.NewConstant(1, 1.0), 0)
	require.ErrorIs(t, err, errs.ErrParameter)
}

func TestShapeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	rbf := kern.NewSquaredExponential(3, 1.0)
	f := feat.NewInducingPoints(randn(rng, 5, 3))

	_, err := feat.Kuf(f, rbf, randn(rng, 2, 2))
	require.ErrorIs(t, err, errs.ErrShape)
	var shapeErr *errs.ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, "query points", shapeErr.What)
	require.Equal(t, []int{2, 2}, shapeErr.Got)

	narrow := feat.NewInducingPoints(randn(rng, 5, 2))
	_, err = feat.Kuu(narrow, rbf, 0)
	require.ErrorIs(t, err, errs.ErrShape)

	conv := kern.NewConvolutional(kern.NewSquaredExponential(4, 1.0), [2]int{3, 3}, [2]int{2, 2})
	_, err = feat.Kuu(feat.NewInducingPatch(randn(rng, 3, 5)), conv, 0)
	require.ErrorIs(t, err, errs.ErrShape)
	_, err = feat.Kuf(feat.NewInducingPatch(randn(rng, 3, 4)), conv, randn(rng, 1, 8))
	require.ErrorIs(t, err, errs.ErrShape)

	_, err = feat.NewMultiscale(randn(rng, 3, 2), randu(rng, 3, 1))
	require.ErrorIs(t, err, errs.ErrShape)
	neg := randu(rng, 3, 2)
	neg.Data[4] = -0.1
	_, err = feat.NewMultiscale(randn(rng, 3, 2), neg)
	require.ErrorIs(t, err, errs.ErrParameter)
}

func TestKuuJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	f := feat.NewInducingPoints(randn(rng, 6, 2))
	k := kern.NewMatern32(2, 1.0)
	plain, err := feat.Kuu(f, k, 0)
	require.NoError(t, err)
	first, err := feat.Kuu(f, k, 1e-3)
	require.NoError(t, err)
	second, err := feat.Kuu(f, k, 1e-3)
	require.NoError(t, err)
	require.Equal(t, first.Data, second.Data)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			want := plain.Data[i*plain.Stride+j]
			if i == j {
				want += 1e-3
			}
			require.Equal(t, want, first.Data[i*first.Stride+j])
		}
	}

	_, err = feat.Kuu(f, k, -1)
	require.ErrorIs(t, err, errs.ErrParameter)
}

func TestRegister(t *testing.T) {
	called := false
	feat.Register(feat.KindMultiscale, kern.KindPeriodic,
		func(f feat.Feature, k kern.Kernel) (blas64.Symmetric, error) {
			called = true
			return utils.NewSymmetric(f.Len()), nil
		},
		func(f feat.Feature, k kern.Kernel, x blas64.General) (blas64.General, error) {
			return utils.NewGeneral(f.Len(), x.Rows), nil
		})
	defer feat.Register(feat.KindMultiscale, kern.KindPeriodic, nil, nil)

	ms := mustMultiscale(t, utils.NewGeneral(2, 1), utils.NewGeneral(2, 1))
	kuu, err := feat.Kuu(ms, kern.NewPeriodic(1, 1.0), 0)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, 2, kuu.N)
	feat.Register(feat.KindMultiscale, kern.KindPeriodic, nil, nil)
	_, err = feat.Kuu(ms, kern.NewPeriodic(1, 1.0), 0)
	require.ErrorIs(t, err, errs.ErrDispatch)
}
