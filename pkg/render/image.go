package render

import (
	"fmt"
	"image"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/scenereel/pkg/iox"
)

// LoadJPEG decodes a JPEG file into an RGBA image that gg can draw onto
func LoadJPEG(filename string) (*image.RGBA, error) {
	img, err := iox.ReadJPEG(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode image %v: %w", filename, err)
	}
	if img.NChan() != 3 {
		img = img.ToRGB()
	}
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		src := img.Pixels[y*img.Stride : y*img.Stride+img.Width*3]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+img.Width*4]
		for x := 0; x < img.Width; x++ {
			out[x*4] = src[x*3]
			out[x*4+1] = src[x*3+1]
			out[x*4+2] = src[x*3+2]
			out[x*4+3] = 255
		}
	}
	return dst, nil
}

// ToCImageRGB drops the alpha channel of an RGBA image
func ToCImageRGB(src *image.RGBA) *cimg.Image {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := cimg.NewImage(w, h, cimg.PixelFormatRGB)
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pixels[y*dst.Stride : y*dst.Stride+w*3]
		for x := 0; x < w; x++ {
			out[x*3] = in[x*4]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4+2]
		}
	}
	return dst
}

// SaveJPEG compresses the image and writes it atomically
func SaveJPEG(filename string, img *image.RGBA, quality int) error {
	buf, err := cimg.Compress(ToCImageRGB(img), cimg.MakeCompressParams(cimg.Sampling420, quality, 0))
	if err != nil {
		return fmt.Errorf("Failed to compress %v: %w", filename, err)
	}
	return iox.WriteFileAtomic(filename, buf, 0644)
}
