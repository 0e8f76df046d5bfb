//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// GLSL source and the SPIR-V file the renderer loads for it.
var shaderSources = [][2]string{
	{"shader.vert", "vert.spv"},
	{"shader.frag", "frag.spv"},
	{"second.vert", "second_vert.spv"},
	{"second.frag", "second_frag.spv"},
}

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	if err := requireTool("glslc", "install the Vulkan SDK or shaderc"); err != nil {
		return err
	}
	for _, s := range shaderSources {
		src := filepath.Join(shaderDir, s[0])
		out := filepath.Join(shaderDir, s[1])
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Runs the unit tests. None of them needs a GPU.
func (Build) Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
