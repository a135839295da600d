package l3perception

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/gift"
)

// Params configures mask refinement.
type Params struct {
	KernelSize       int     // structuring element size for the rank filters, odd
	DilateIterations int     // extra dilation passes after smoothing
	ThresholdCutoff  uint8   // smoothed values strictly above this become 255
	GaussianSize     int     // Gaussian window, odd; 0 or 1 skips the pass
	GaussianSigma    float32 // 0 derives sigma from GaussianSize
	BoxSize          int     // box (mean) filter size, odd
}

// DefaultParams returns production refinement defaults.
func DefaultParams() Params {
	return Params{
		KernelSize:       3,
		DilateIterations: 5,
		ThresholdCutoff:  175,
		GaussianSize:     5,
		GaussianSigma:    1.1,
		BoxSize:          5,
	}
}

// Validate rejects sizes the rank and box filters cannot honour.
func (p Params) Validate() error {
	if p.KernelSize < 1 || p.KernelSize%2 == 0 {
		return fmt.Errorf("kernel size must be a positive odd number, got %d", p.KernelSize)
	}
	if p.BoxSize < 1 || p.BoxSize%2 == 0 {
		return fmt.Errorf("box size must be a positive odd number, got %d", p.BoxSize)
	}
	if p.DilateIterations < 0 {
		return fmt.Errorf("dilate iterations must be non-negative, got %d", p.DilateIterations)
	}
	if p.GaussianSize < 0 || (p.GaussianSize > 1 && p.GaussianSize%2 == 0) {
		return fmt.Errorf("gaussian size must be 0, 1 or a positive odd number, got %d", p.GaussianSize)
	}
	if p.GaussianSigma < 0 {
		return fmt.Errorf("gaussian sigma must be non-negative, got %v", p.GaussianSigma)
	}
	return nil
}

// newRefineFilter builds the refinement chain: close, open, Gaussian blur,
// box blur, dilate xN, binary threshold.
func newRefineFilter(p Params) *gift.GIFT {
	k := p.KernelSize
	filters := []gift.Filter{
		// closing fills small holes
		gift.Maximum(k, true),
		gift.Minimum(k, true),
		// opening removes speckle
		gift.Minimum(k, true),
		gift.Maximum(k, true),
	}
	if p.GaussianSize > 1 {
		filters = append(filters, gift.Convolution(gaussianKernel(p.GaussianSize, p.GaussianSigma), true, false, false, 0))
	}
	if p.BoxSize > 1 {
		filters = append(filters, gift.Mean(p.BoxSize, false))
	}
	for i := 0; i < p.DilateIterations; i++ {
		filters = append(filters, gift.Maximum(k, true))
	}

	cut := float32(p.ThresholdCutoff) / 255
	filters = append(filters, gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		if r0 > cut {
			return 1, 1, 1, 1
		}
		return 0, 0, 0, 1
	}))
	return gift.New(filters...)
}

// gaussianKernel returns a size x size row-major Gaussian window summing to
// one. A non-positive sigma is derived from the window as
// 0.3*((size-1)/2-1)+0.8, which gives 1.1 for a 5x5 window.
func gaussianKernel(size int, sigma float32) []float32 {
	s := float64(sigma)
	if s <= 0 {
		s = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	c := size / 2
	row := make([]float64, size)
	var sum float64
	for i := range row {
		d := float64(i - c)
		row[i] = math.Exp(-d * d / (2 * s * s))
		sum += row[i]
	}
	kernel := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			kernel[y*size+x] = float32(row[y] * row[x] / (sum * sum))
		}
	}
	return kernel
}

// RefineMask cleans a raw foreground mask into a binary 0/255 mask. Shadow
// pixels (127) fall below the default cutoff once smoothed and vanish.
func (c *Classifier) RefineMask(mask *image.Gray) *image.Gray {
	dst := image.NewGray(c.filter.Bounds(mask.Bounds()))
	c.filter.Draw(dst, mask)
	return dst
}
