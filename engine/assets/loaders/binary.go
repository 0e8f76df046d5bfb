package loaders

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// BinaryLoader reads precompiled SPIR-V modules. The resource data is the
// module as 32-bit words, DataSize is the size in bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(core.ErrAssetNotFound, "binary `%s`", path)
		}
		return nil, errors.Wrapf(err, "failed to read binary `%s`", path)
	}

	code, err := BytesToBytecode(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "binary `%s`", path)
	}

	return metadata.NewResource(metadata.ResourceTypeBinary, resourceName(params, path), path, uint64(len(buf)), code), nil
}

func (bl *BinaryLoader) Unload(*metadata.Resource) error {
	return nil
}

// BytesToBytecode reinterprets a little endian SPIR-V blob as words.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "spir-v size %d is not a multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != SPIRVMagic {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "bad spir-v magic 0x%08x", byteCode[0])
	}
	return byteCode, nil
}

func resourceName(params interface{}, fallback string) string {
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		return p["name"]
	}
	return fallback
}
