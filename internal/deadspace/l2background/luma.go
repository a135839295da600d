package l2background

import (
	"image"
	"image/color"
)

// luma returns the BT.601 luma of the pixel at (x, y) on a 0..255 scale,
// using the same integer weights as color.GrayModel.
func luma(img image.Image, x, y int) float64 {
	switch im := img.(type) {
	case *image.Gray:
		return float64(im.Pix[im.PixOffset(x, y)])
	case *image.RGBA:
		i := im.PixOffset(x, y)
		r, g, b := uint32(im.Pix[i]), uint32(im.Pix[i+1]), uint32(im.Pix[i+2])
		return float64((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
	default:
		return float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
	}
}

// Luma converts img to an 8-bit grayscale image anchored at the origin.
func Luma(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			row[x] = uint8(luma(img, b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
