//go:build debug

package vulkan

// DefaultValidation enables the validation layer in debug builds.
const DefaultValidation = true
