package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

/** @brief Parameters for the image loader. */
type ImageParams struct {
	/** @brief Flip rows so the first row is the bottom of the image, as GL samples it. */
	FlipY bool
}

/** @brief Decoded pixels ready for Texture.UploadImage. */
type ImageData struct {
	Pixels []byte
	Width  int
	Height int
	Format gl.PixelFormat
}

type ImageLoader struct{}

// DecodeImage decodes png, jpeg, gif, bmp, tiff or webp data into tightly
// packed RGBA pixels.
func DecodeImage(data []byte, flipY bool) (*ImageData, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	if flipY {
		flipRows(rgba.Pix, rgba.Stride, b.Dy())
	}
	return &ImageData{
		Pixels: rgba.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: gl.RGBA,
	}, nil
}

func flipRows(pix []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

func (il *ImageLoader) Load(path string, params interface{}) (*Resource, error) {
	var p ImageParams
	switch typed := params.(type) {
	case nil:
	case ImageParams:
		p = typed
	case *ImageParams:
		p = *typed
	default:
		return nil, paramsError("image", params)
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data, p.FlipY)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %w", path, err)
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(img.Pixels)),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
