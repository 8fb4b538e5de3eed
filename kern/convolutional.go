package kern

import (
	"fmt"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
)

var (
	convolutional *Convolutional
	_             Kernel = convolutional // Check that Convolutional respects the Kernel interface.
)

var convolutionalOptions = map[string]bool{"channels": true, "normalized": true}

// Convolutional kernel over images. Each image is cut into all patches of
// the patch shape (unit stride, no padding) and
//
//	k(x, y) = s^2 sum_p sum_q base(x_p, y_q)
//
// with s = 1/P when normalized (the default) and s = 1 otherwise.
//
// Images are stored one per row, pixel-major with the colour channels of a
// pixel interleaved: column (r*W + c)*C + ch.
type Convolutional struct {
	base     Kernel
	imgH     int
	imgW     int
	patchH   int
	patchW   int
	channels int
	norm     bool
}

func NewConvolutional(base Kernel, imageShape, patchShape [2]int, opts ...Option) *Convolutional {
	cfg := gatherOptions("Convolutional", convolutionalOptions, opts)
	for _, n := range append(imageShape[:], patchShape[:]...) {
		if n < 1 {
			panic(fmt.Sprintf("kern: Convolutional shapes must be positive, got %v and %v",
				imageShape, patchShape))
		}
	}
	if patchShape[0] > imageShape[0] || patchShape[1] > imageShape[1] {
		panic(fmt.Sprintf("kern: patch shape %v larger than image shape %v",
			patchShape, imageShape))
	}
	k := &Convolutional{
		base:     base,
		imgH:     imageShape[0],
		imgW:     imageShape[1],
		patchH:   patchShape[0],
		patchW:   patchShape[1],
		channels: cfg.channels,
		norm:     cfg.normalized,
	}
	if err := base.Validate(utils.NewGeneral(0, k.PatchDim())); err != nil {
		panic(fmt.Sprintf("kern: base kernel cannot read %d-dimensional patches: %v",
			k.PatchDim(), err))
	}
	return k
}

func (k *Convolutional) Kind() Kind {
	return KindConvolutional
}

func (k *Convolutional) Base() Kernel {
	return k.base
}

// Patches per image, over all colour channels.
func (k *Convolutional) NumPatches() int {
	return (k.imgH - k.patchH + 1) * (k.imgW - k.patchW + 1) * k.channels
}

func (k *Convolutional) PatchDim() int {
	return k.patchH * k.patchW
}

func (k *Convolutional) ImageDim() int {
	return k.imgH * k.imgW * k.channels
}

// Scale applied to each patch sum, 1/P or 1.
func (k *Convolutional) Scale() float64 {
	if k.norm {
		return 1.0 / float64(k.NumPatches())
	}
	return 1.0
}

func (k *Convolutional) Validate(x blas64.General) error {
	if x.Cols != k.ImageDim() {
		return errs.Shape("Validate", "images", x.Rows, x.Cols, -1, k.ImageDim())
	}
	return nil
}

// Patches extracts every patch of every image. Row n*P + i holds patch i
// of image n; patches are ordered by channel, then row-major over their
// top-left offset, and each patch is flattened row-major.
func (k *Convolutional) Patches(x blas64.General) blas64.General {
	mustValidate(k, x)
	outH := k.imgH - k.patchH + 1
	outW := k.imgW - k.patchW + 1
	nPatches := k.NumPatches()
	out := utils.NewGeneral(x.Rows*nPatches, k.PatchDim())
	for n := 0; n < x.Rows; n++ {
		img := utils.Row(x, n)
		row := n * nPatches
		for ch := 0; ch < k.channels; ch++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					dst := utils.Row(out, row)
					for dy := 0; dy < k.patchH; dy++ {
						for dx := 0; dx < k.patchW; dx++ {
							pix := (oy+dy)*k.imgW + ox + dx
							dst[dy*k.patchW+dx] = img[pix*k.channels+ch]
						}
					}
					row++
				}
			}
		}
	}
	return out
}

func (k *Convolutional) K(x, y blas64.General) blas64.General {
	big := k.base.K(k.Patches(x), k.Patches(y))
	return k.reduce(big, x.Rows, y.Rows)
}

func (k *Convolutional) KSym(x blas64.General) blas64.Symmetric {
	big := k.base.KSym(k.Patches(x))
	return utils.Symmetrize(k.reduce(utils.Full(big), x.Rows, x.Rows))
}

func (k *Convolutional) KDiag(x blas64.General) blas64.Vector {
	px := k.Patches(x)
	p := k.NumPatches()
	s2 := k.Scale() * k.Scale()
	out := blas64.Vector{N: x.Rows, Inc: 1, Data: make([]float64, x.Rows)}
	for n := 0; n < x.Rows; n++ {
		img := blas64.General{
			Rows:   p,
			Cols:   px.Cols,
			Stride: px.Stride,
			Data:   px.Data[n*p*px.Stride : (n+1)*p*px.Stride],
		}
		out.Data[n] = s2 * sumAll(utils.Full(k.base.KSym(img)))
	}
	return out
}

// Sums P×P blocks of a patch-level covariance into an image-level one.
func (k *Convolutional) reduce(big blas64.General, n, m int) blas64.General {
	p := k.NumPatches()
	s2 := k.Scale() * k.Scale()
	out := utils.NewGeneral(n, m)
	for i := 0; i < big.Rows; i++ {
		row := utils.Row(big, i)
		dst := utils.Row(out, i/p)
		for j, v := range row {
			dst[j/p] += v
		}
	}
	for i := range out.Data {
		out.Data[i] *= s2
	}
	return out
}

func sumAll(g blas64.General) float64 {
	total := 0.0
	for i := 0; i < g.Rows; i++ {
		for _, v := range utils.Row(g, i) {
			total += v
		}
	}
	return total
}
