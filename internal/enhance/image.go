package enhance

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// LoadGray decodes a png, jpeg or tiff file into 8-bit grayscale.
func LoadGray(path string) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray, nil
}

func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Histogram counts pixels per gray level.
func Histogram(img *image.Gray) [256]float64 {
	var hist [256]float64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			hist[row[x]]++
		}
	}
	return hist
}

// Remap applies a lookup table to every pixel.
func Remap(img *image.Gray, lut [256]uint8) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		dst := out.Pix[(y-bounds.Min.Y)*out.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			dst[x] = lut[src[x]]
		}
	}
	return out
}
