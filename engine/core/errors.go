package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrMissingExtension  = errors.New("required extension not available")
	ErrMissingLayer      = errors.New("required validation layer not available")
	ErrNoSuitableDevice  = errors.New("no suitable physical device")
	ErrDeviceCreation    = errors.New("logical device creation failed")
	ErrResourceCreation  = errors.New("gpu resource creation failed")
	ErrUnsupportedFormat = errors.New("no supported format")
	ErrFrameSubmission   = errors.New("frame submission failed")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrInvalidAsset      = errors.New("invalid asset")
	ErrNotInitialized    = errors.New("not initialized")
	ErrUnknown           = errors.New("unknown")
)
