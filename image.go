package storedpng

import (
	"fmt"
	"image"
	"image/color"
	"io"
)

// RawPixels converts `img` into a pixel buffer of the given format, suitable
// for passing to [Encode]. Channels are taken from the non-premultiplied
// 8-bit color of each pixel; gray formats use its red channel, so images
// that aren't gray already should be converted first.
func RawPixels(img image.Image, format ColorFormat) ([]byte, error) {
	if !format.Valid() {
		return nil, ErrContractViolation.WithMessage(
			fmt.Sprintf("unknown color format %d", uint8(format)))
	}

	bounds := img.Bounds()
	pixels := make([]byte, 0, bounds.Dx()*bounds.Dy()*format.Channels())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			switch format {
			case Gray:
				pixels = append(pixels, c.R)
			case GrayAlpha:
				pixels = append(pixels, c.R, c.A)
			case RGB:
				pixels = append(pixels, c.R, c.G, c.B)
			case RGBA:
				pixels = append(pixels, c.R, c.G, c.B, c.A)
			}
		}
	}
	return pixels, nil
}

// EncodeImage is a convenience wrapper that writes `img` with [Encode] after
// converting it with [RawPixels].
func EncodeImage(output io.Writer, img image.Image, format ColorFormat) error {
	pixels, err := RawPixels(img, format)
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	shape := Shape{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}
	return Encode(output, format, shape, pixels)
}
