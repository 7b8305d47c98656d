package core

import (
	"errors"
	"strings"
	"testing"
)

func TestInitErrorKinds(t *testing.T) {
	cause := errors.New("vkCreateDevice: VK_ERROR_FEATURE_NOT_PRESENT")
	tests := []struct {
		kind InitErrorKind
		want error
		not  error
	}{
		{InitNoSuitableDevice, ErrNoSuitableDevice, ErrMissingFeatures},
		{InitMissingFeatures, ErrMissingFeatures, ErrNoSuitableDevice},
		{InitResourceCreation, ErrResourceCreation, ErrMissingFeatures},
	}
	for _, tt := range tests {
		err := error(NewInitError(tt.kind, "device", cause))
		if !errors.Is(err, tt.want) {
			t.Errorf("kind %d: errors.Is(%v) = false", tt.kind, tt.want)
		}
		if errors.Is(err, tt.not) {
			t.Errorf("kind %d: unexpectedly matches %v", tt.kind, tt.not)
		}
		if !errors.Is(err, cause) {
			t.Errorf("kind %d: cause not reachable", tt.kind)
		}
		var ie *InitError
		if !errors.As(err, &ie) || ie.Op != "device" {
			t.Errorf("kind %d: errors.As failed", tt.kind)
		}
	}
}

func TestCompileErrorKeepsDiagnostics(t *testing.T) {
	diag := "mesh.vert:12: error: 'foo' : undeclared identifier\n1 error generated."
	err := &CompileError{Path: "mesh.vert", Stage: "vertex", Diagnostics: diag}
	if !strings.Contains(err.Error(), diag) {
		t.Fatalf("diagnostics lost: %q", err.Error())
	}
}
