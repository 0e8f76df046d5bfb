package metadata

// SceneNode is one node of an imported scene. Meshes index into Scene.Meshes.
type SceneNode struct {
	Name     string
	Meshes   []int
	Children []*SceneNode
}

// Scene is the CPU side result of importing a model file.
type Scene struct {
	Name string
	// Directory the scene was loaded from, texture paths are relative to it.
	Directory string
	Root      *SceneNode
	Meshes    []GeometryConfig
	Materials []MaterialConfig
}

// FlattenScene walks the node tree depth first, a node's own meshes before its
// children and children in declared order, and returns the meshes in that order.
func FlattenScene(scene *Scene) []GeometryConfig {
	if scene == nil || scene.Root == nil {
		return nil
	}
	out := []GeometryConfig{}
	stack := []*SceneNode{scene.Root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}
		for _, m := range node.Meshes {
			if m >= 0 && m < len(scene.Meshes) {
				out = append(out, scene.Meshes[m])
			}
		}
		// Push in reverse so the first child is visited next.
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return out
}
