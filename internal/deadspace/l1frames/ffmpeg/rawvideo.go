package ffmpeg

import (
	"fmt"
	"image"
)

// decodeRGB24 copies one packed rgb24 frame into a fresh RGBA image. The
// buffer is reused by the decoder, so the image must not alias it.
func decodeRGB24(buf []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(buf) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// encodeRGB24 packs img into buf, which must hold dims.X*dims.Y*3 bytes.
func encodeRGB24(img image.Image, dims image.Point, buf []byte) error {
	b := img.Bounds()
	if b.Dx() != dims.X || b.Dy() != dims.Y {
		return fmt.Errorf("frame size %dx%d does not match output %dx%d", b.Dx(), b.Dy(), dims.X, dims.Y)
	}
	if len(buf) < dims.X*dims.Y*3 {
		return fmt.Errorf("encode buffer too small: %d bytes", len(buf))
	}

	i := 0
	switch src := img.(type) {
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				buf[i], buf[i+1], buf[i+2] = row[x*4], row[x*4+1], row[x*4+2]
				i += 3
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				buf[i], buf[i+1], buf[i+2] = row[x], row[x], row[x]
				i += 3
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				buf[i], buf[i+1], buf[i+2] = uint8(r>>8), uint8(g>>8), uint8(bl>>8)
				i += 3
			}
		}
	}
	return nil
}
