package metadata

// NoTextureIndex is the texture descriptor used by meshes whose material has
// no diffuse map.
const NoTextureIndex uint32 = 0

/**
 * @brief Material as read from the scene file. Only the diffuse map is used.
 */
type MaterialConfig struct {
	Name string
	/** @brief Path of the diffuse texture relative to the scene directory, empty if none. */
	DiffuseMap string
}

// RemapMaterialTextures assigns a texture index to every material. Materials
// without a diffuse map get NoTextureIndex; each textured material gets the
// index returned by create for its map.
func RemapMaterialTextures(materials []MaterialConfig, create func(diffuseMap string) (uint32, error)) ([]uint32, error) {
	out := make([]uint32, len(materials))
	for i, m := range materials {
		if m.DiffuseMap == "" {
			out[i] = NoTextureIndex
			continue
		}
		id, err := create(m.DiffuseMap)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
