package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageLoader decodes any registered image format into tightly packed RGBA8.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	typedParams, _ := params.(*metadata.ImageResourceParams)
	if typedParams == nil {
		typedParams = &metadata.ImageResourceParams{}
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(core.ErrAssetNotFound, "image `%s`", path)
		}
		return nil, errors.Wrapf(err, "failed to open image `%s`", path)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "decode image `%s`: %s", path, err)
	}

	data := ToRGBA(img, typedParams.FlipY)
	core.LogDebug("decoded %s image `%s` (%dx%d)", format, path, data.Width, data.Height)

	return metadata.NewResource(metadata.ResourceTypeImage, resourceName(params, path), path, uint64(len(data.Pixels)), data), nil
}

func (il *ImageLoader) Unload(*metadata.Resource) error {
	return nil
}

// ToRGBA converts img to an RGBA8 pixel buffer, optionally flipping rows.
func ToRGBA(img image.Image, flipY bool) *metadata.ImageResourceData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	pixels := rgba.Pix
	if flipY {
		stride := rgba.Stride
		h := rgba.Bounds().Dy()
		flipped := make([]uint8, len(pixels))
		for y := 0; y < h; y++ {
			copy(flipped[y*stride:(y+1)*stride], pixels[(h-1-y)*stride:(h-y)*stride])
		}
		pixels = flipped
	}

	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(rgba.Bounds().Dx()),
		Height:       uint32(rgba.Bounds().Dy()),
		Pixels:       pixels,
	}
}
