// Package pyruntime is the reference hostapi.CodeRuntime: it shells a
// python3 subprocess per call (spec.md §4.5, §9 Design Notes — "delegated
// to a host embedding API exposed by the host application"). Running the
// source as a top-level module via "python3 -c" gives the §4.5 "single
// mapping as both globals and locals" property for free: a module's own
// __dict__ already serves as both, so names imported at top level are
// visible inside function bodies defined in the same program without any
// hand-rolled scope plumbing.
package pyruntime

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/scenebridge/blenderforge/internal/hostapi"
	"github.com/scenebridge/blenderforge/internal/wire"
)

// Runtime invokes an external python3 interpreter.
type Runtime struct {
	// PythonPath overrides the interpreter binary; defaults to "python3".
	PythonPath string
}

// New returns a Runtime using "python3" from PATH.
func New() *Runtime {
	return &Runtime{PythonPath: "python3"}
}

// Eval implements hostapi.CodeRuntime.
func (r *Runtime) Eval(ctx context.Context, source string) (hostapi.ExecResult, error) {
	bin := r.PythonPath
	if bin == "" {
		bin = "python3"
	}

	cmd := exec.CommandContext(ctx, bin, "-c", source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := hostapi.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit: this is a HandlerError carrying the script's own
			// stderr, not an infrastructure failure.
			return result, wire.NewError(wire.KindHandlerError, "%s", firstNonEmpty(stderr.String(), err.Error()))
		}
		return result, wire.Wrap(wire.KindHandlerError, err, "failed to invoke python3")
	}
	return result, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
