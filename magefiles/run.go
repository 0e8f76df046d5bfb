//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and then runs the testbed.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Like Engine, built with -tags debug so the validation layer is on.
func (Run) Debug() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine (debug)...")
	if _, err := executeCmd("go", withArgs("run", "-tags", "debug", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
