//go:build !debug

package vulkan

// DefaultValidation keeps the validation layer off outside debug builds.
const DefaultValidation = false
