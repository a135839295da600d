package l3perception

import (
	"image"
	"image/color"
	"image/draw"
)

// RegionColour is the overlay colour used for previews.
var RegionColour = color.RGBA{G: 255, A: 255}

// DrawRegions returns a copy of img with every region boundary stroked in
// col at the given thickness.
func DrawRegions(img image.Image, regions []Contour, col color.RGBA, thickness int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	if thickness < 1 {
		thickness = 1
	}
	r := thickness / 2
	for _, region := range regions {
		for _, p := range region.Points {
			stamp := image.Rect(p.X-r, p.Y-r, p.X-r+thickness, p.Y-r+thickness).Intersect(out.Rect)
			draw.Draw(out, stamp, image.NewUniform(col), image.Point{}, draw.Src)
		}
	}
	return out
}
