package metadata

/**
 * @brief A structure to hold image resource data, always RGBA8.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

// WhitePixel is the 1x1 image backing texture index 0.
func WhitePixel() *ImageResourceData {
	return &ImageResourceData{
		ChannelCount: 4,
		Width:        1,
		Height:       1,
		Pixels:       []uint8{0xff, 0xff, 0xff, 0xff},
	}
}
