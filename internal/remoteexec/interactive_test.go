package remoteexec

import (
	"context"
	"testing"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

func TestExecInteractive_RequiresCommand(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.ExecInteractive(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error for an empty command")
	}
	rv, ok := err.(*rverrors.RVError)
	if !ok || rv.Kind != rverrors.KindConfig {
		t.Errorf("expected KindConfig, got %v", err)
	}
}
