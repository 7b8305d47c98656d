package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuitableDevice = errors.New("no GPU exposes presentation support on any queue family")
	ErrMissingFeatures  = errors.New("GPU driver or hardware lacks required features")
	ErrResourceCreation = errors.New("GPU resource creation failed")

	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrZeroExtent         = errors.New("surface has zero area")
	ErrNotInitialized     = errors.New("not initialized")
	ErrInvalidScene       = errors.New("invalid scene")
	ErrUnknown            = errors.New("unknown")
)

type InitErrorKind uint8

const (
	InitNoSuitableDevice InitErrorKind = iota
	InitMissingFeatures
	InitResourceCreation
)

func (k InitErrorKind) sentinel() error {
	switch k {
	case InitNoSuitableDevice:
		return ErrNoSuitableDevice
	case InitMissingFeatures:
		return ErrMissingFeatures
	default:
		return ErrResourceCreation
	}
}

// InitError is returned for any fatal startup failure. Kind lets callers
// tell "no device" apart from "device too old" when reporting to the user.
type InitError struct {
	Kind InitErrorKind
	Op   string
	Err  error
}

func NewInitError(kind InitErrorKind, op string, err error) *InitError {
	return &InitError{Kind: kind, Op: op, Err: err}
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *InitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// CompileError carries the shader compiler's diagnostics untouched.
type CompileError struct {
	Path        string
	Stage       string
	Diagnostics string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader `%s`:\n%s", e.Stage, e.Path, e.Diagnostics)
}
