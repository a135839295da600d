package l3perception

import (
	"image"
)

// MaskMetrics summarises a mask for monitoring.
type MaskMetrics struct {
	TotalPixels        int
	ForegroundPixels   int
	ShadowPixels       int
	ForegroundFraction float64
}

// ComputeMaskMetrics counts 255 as foreground, any other non-zero value as
// shadow.
func ComputeMaskMetrics(mask *image.Gray) MaskMetrics {
	b := mask.Bounds()
	m := MaskMetrics{TotalPixels: b.Dx() * b.Dy()}
	for y := 0; y < b.Dy(); y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		for _, v := range row {
			switch {
			case v == 255:
				m.ForegroundPixels++
			case v != 0:
				m.ShadowPixels++
			}
		}
	}
	if m.TotalPixels > 0 {
		m.ForegroundFraction = float64(m.ForegroundPixels) / float64(m.TotalPixels)
	}
	return m
}
