package metadata

import "github.com/google/uuid"

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Text resource type. */
	ResourceTypeText ResourceType = iota
	/** @brief Binary resource type, used for SPIR-V shader modules. */
	ResourceTypeBinary
	/** @brief Image resource type. */
	ResourceTypeImage
	/** @brief Scene resource type (node tree, meshes and materials). */
	ResourceTypeScene
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeScene:
		return "scene"
	}
	return "unknown"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	ID uuid.UUID
	/** @brief The type of the loader which handles this resource. */
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

func NewResource(t ResourceType, name, fullPath string, size uint64, data interface{}) *Resource {
	return &Resource{
		ID:       uuid.New(),
		Type:     t,
		Name:     name,
		FullPath: fullPath,
		DataSize: size,
		Data:     data,
	}
}
