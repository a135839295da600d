//go:build gocv

package cvbackend

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Classifier runs the refinement chain and contour test on OpenCV. It owns
// a structuring element and must be closed.
type Classifier struct {
	params l3perception.Params
	kernel gocv.Mat
}

// NewClassifier validates p and builds an elliptical structuring element of
// p.KernelSize.
func NewClassifier(p l3perception.Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	k := image.Pt(p.KernelSize, p.KernelSize)
	return &Classifier{params: p, kernel: gocv.GetStructuringElement(gocv.MorphEllipse, k)}, nil
}

// RefineMask applies close, open, Gaussian blur, box blur, dilation and a
// binary threshold. A mask OpenCV cannot read comes back empty.
func (c *Classifier) RefineMask(mask *image.Gray) *image.Gray {
	p := c.params
	src, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		monitoring.Logf("[OpenCV] refine: %v", err)
		return image.NewGray(image.Rect(0, 0, mask.Bounds().Dx(), mask.Bounds().Dy()))
	}

	cur := src
	step := func(apply func(dst *gocv.Mat)) {
		next := gocv.NewMat()
		apply(&next)
		cur.Close()
		cur = next
	}

	step(func(dst *gocv.Mat) { gocv.MorphologyEx(cur, dst, gocv.MorphClose, c.kernel) })
	step(func(dst *gocv.Mat) { gocv.MorphologyEx(cur, dst, gocv.MorphOpen, c.kernel) })
	if p.GaussianSize > 1 {
		sigma := float64(p.GaussianSigma)
		size := image.Pt(p.GaussianSize, p.GaussianSize)
		step(func(dst *gocv.Mat) { gocv.GaussianBlur(cur, dst, size, sigma, sigma, gocv.BorderDefault) })
	}
	if p.BoxSize > 1 {
		step(func(dst *gocv.Mat) { gocv.Blur(cur, dst, image.Pt(p.BoxSize, p.BoxSize)) })
	}
	for i := 0; i < p.DilateIterations; i++ {
		step(func(dst *gocv.Mat) { gocv.Dilate(cur, dst, c.kernel) })
	}
	step(func(dst *gocv.Mat) {
		gocv.Threshold(cur, dst, float32(p.ThresholdCutoff), 255, gocv.ThresholdBinary)
	})
	defer cur.Close()

	out, err := matToGray(cur)
	if err != nil {
		monitoring.Logf("[OpenCV] refine: %v", err)
		return image.NewGray(image.Rect(0, 0, mask.Bounds().Dx(), mask.Bounds().Dy()))
	}
	return out
}

// Classify finds external contours and reports the frame active at the
// first one, in OpenCV's enumeration order, whose ContourArea reaches
// minArea.
func (c *Classifier) Classify(mask *image.Gray, minArea float64) l3perception.MotionResult {
	m, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		monitoring.Logf("[OpenCV] classify: %v", err)
		return l3perception.MotionResult{Trigger: -1}
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	regions := make([]l3perception.Contour, 0, contours.Size())
	trigger := -1
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		pts := pv.ToPoints()
		regions = append(regions, l3perception.Contour{Points: pts, Bounds: boundsOf(pts)})
		if trigger < 0 && gocv.ContourArea(pv) >= minArea {
			trigger = i
		}
	}
	if trigger < 0 {
		return l3perception.MotionResult{Trigger: -1}
	}
	return l3perception.MotionResult{Active: true, Regions: regions, Trigger: trigger}
}

// Close releases the structuring element.
func (c *Classifier) Close() error {
	return c.kernel.Close()
}

func boundsOf(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Pt(1, 1))}
	for _, p := range pts[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}
