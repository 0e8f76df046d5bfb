package loaders

import (
	"bufio"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

// SceneLoader imports Wavefront OBJ files and their MTL library into a scene
// tree: one root node, one child per OBJ object and one mesh per material used
// by that object.
type SceneLoader struct{}

func (sl *SceneLoader) Load(objPath string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	objFile, err := os.Open(objPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(core.ErrAssetNotFound, "scene `%s`", objPath)
		}
		return nil, errors.Wrapf(err, "failed to open scene `%s`", objPath)
	}
	defer objFile.Close()

	mtlReader, closeMtl := openMaterialLibrary(objFile, objPath)
	defer closeMtl()
	if _, err := objFile.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "rewind scene `%s`", objPath)
	}

	decoder, err := obj.DecodeReader(objFile, mtlReader)
	if err != nil {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "decode scene `%s`: %s", objPath, err)
	}
	for _, w := range decoder.Warnings {
		core.LogWarn("scene `%s`: %s", objPath, w)
	}

	scene := BuildScene(decoder, filepath.Base(objPath))
	scene.Directory = filepath.Dir(objPath)
	if len(scene.Meshes) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "scene `%s` has no triangles", objPath)
	}

	core.LogDebug("scene `%s`: %d nodes, %d meshes, %d materials", objPath, len(scene.Root.Children)+1, len(scene.Meshes), len(scene.Materials))
	return metadata.NewResource(metadata.ResourceTypeScene, resourceName(params, objPath), objPath, uint64(len(scene.Meshes)), scene), nil
}

func (sl *SceneLoader) Unload(*metadata.Resource) error {
	return nil
}

// openMaterialLibrary finds the `mtllib` referenced by the OBJ, falling back to
// a sibling file with the .mtl extension. A scene without materials decodes
// against an empty library.
func openMaterialLibrary(objFile io.Reader, objPath string) (io.Reader, func()) {
	dir := filepath.Dir(objPath)
	candidates := []string{}

	scanner := bufio.NewScanner(objFile)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "mtllib ") {
			candidates = append(candidates, filepath.Join(dir, strings.TrimSpace(strings.TrimPrefix(line, "mtllib"))))
			break
		}
	}
	candidates = append(candidates, strings.TrimSuffix(objPath, filepath.Ext(objPath))+".mtl")

	for _, c := range candidates {
		f, err := os.Open(c)
		if err == nil {
			return f, func() { f.Close() }
		}
	}
	core.LogDebug("no material library for `%s`", objPath)
	return strings.NewReader(""), func() {}
}

type vertexKey struct {
	position int
	uv       int
}

// BuildScene converts decoded OBJ data into a scene. Faces are fan
// triangulated, V is flipped for Vulkan's top-left texture origin and vertices
// are shared inside a mesh when position and UV match.
func BuildScene(decoder *obj.Decoder, name string) *metadata.Scene {
	scene := &metadata.Scene{
		Name: name,
		Root: &metadata.SceneNode{Name: name},
	}
	materialIndex := map[string]int{}

	materialFor := func(matName string) int {
		if idx, ok := materialIndex[matName]; ok {
			return idx
		}
		cfg := metadata.MaterialConfig{Name: matName}
		if m, ok := decoder.Materials[matName]; ok && m != nil {
			cfg.DiffuseMap = textureFileName(m.MapKd)
		}
		materialIndex[matName] = len(scene.Materials)
		scene.Materials = append(scene.Materials, cfg)
		return materialIndex[matName]
	}

	for _, object := range decoder.Objects {
		node := &metadata.SceneNode{Name: object.Name}

		meshes := map[string]*metadata.GeometryConfig{}
		dedup := map[string]map[vertexKey]uint32{}
		order := []string{}

		for _, face := range object.Faces {
			mesh, ok := meshes[face.Material]
			if !ok {
				mesh = &metadata.GeometryConfig{
					Name:          object.Name + "/" + face.Material,
					MaterialIndex: materialFor(face.Material),
				}
				meshes[face.Material] = mesh
				dedup[face.Material] = map[vertexKey]uint32{}
				order = append(order, face.Material)
			}
			unique := dedup[face.Material]
			for i := 2; i < len(face.Vertices); i++ {
				addVertex(decoder, mesh, unique, face, 0)
				addVertex(decoder, mesh, unique, face, i-1)
				addVertex(decoder, mesh, unique, face, i)
			}
		}

		for _, matName := range order {
			mesh := meshes[matName]
			if len(mesh.Indices) == 0 {
				continue
			}
			node.Meshes = append(node.Meshes, len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, *mesh)
		}
		scene.Root.Children = append(scene.Root.Children, node)
	}
	return scene
}

func addVertex(decoder *obj.Decoder, mesh *metadata.GeometryConfig, unique map[vertexKey]uint32, face obj.Face, faceIndex int) {
	key := vertexKey{position: face.Vertices[faceIndex], uv: -1}
	if faceIndex < len(face.Uvs) {
		if uv := face.Uvs[faceIndex]; uv >= 0 && uv*2+1 < len(decoder.Uvs) {
			key.uv = uv
		}
	}

	index, exists := unique[key]
	if !exists {
		vert := metadata.Vertex{Color: mgl32.Vec3{1, 1, 1}}
		if p := key.position; p >= 0 && p*3+2 < len(decoder.Vertices) {
			vert.Position = mgl32.Vec3{
				decoder.Vertices[p*3],
				decoder.Vertices[p*3+1],
				decoder.Vertices[p*3+2],
			}
		}
		if key.uv >= 0 {
			vert.TexCoord = mgl32.Vec2{
				decoder.Uvs[key.uv*2],
				1.0 - decoder.Uvs[key.uv*2+1],
			}
		}
		index = uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, vert)
		unique[key] = index
	}
	mesh.Indices = append(mesh.Indices, index)
}

// textureFileName keeps relative map paths and reduces absolute ones (often
// exported from another machine) to their file name.
func textureFileName(mapKd string) string {
	p := strings.TrimSpace(strings.ReplaceAll(mapKd, "\\", "/"))
	if p == "" {
		return ""
	}
	if path.IsAbs(p) || strings.Contains(p, ":") {
		return path.Base(p)
	}
	return p
}
