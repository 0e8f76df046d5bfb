package main

import (
	"go/build/constraint"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every file under magefiles/ must only build with the mage tag, otherwise
// `go build ./...` sees a main package without main.
func TestMagefilesNeedMageTag(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("magefiles", "*.go"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		require.NoError(t, err)

		var expr constraint.Expr
		for _, line := range strings.Split(string(data), "\n") {
			if constraint.IsGoBuild(line) {
				expr, err = constraint.Parse(line)
				require.NoError(t, err, file)
				break
			}
			if strings.HasPrefix(line, "package ") {
				break
			}
		}
		require.NotNil(t, expr, "%s has no //go:build line", file)
		assert.True(t, expr.Eval(func(tag string) bool { return tag == "mage" }), file)
		assert.False(t, expr.Eval(func(tag string) bool { return false }), file)
	}
}
