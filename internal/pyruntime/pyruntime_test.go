package pyruntime

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePython3(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available on PATH")
	}
}

func TestEvalCapturesStdout(t *testing.T) {
	requirePython3(t)

	r := New()
	result, err := r.Eval(context.Background(), "print('hi')")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", result.Stdout)
	assert.Empty(t, result.Stderr)
}

// TestEvalScopingRule exercises spec.md §8's variable-scoping invariant: a
// function defined at top level must see names imported at top level,
// which requires globals and locals to be the same mapping.
func TestEvalScopingRule(t *testing.T) {
	requirePython3(t)

	r := New()
	src := "import math\ndef f():\n    return math.pi\nprint(f())\n"
	result, err := r.Eval(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "3.14159")
}

func TestEvalSeparatesStdoutAndStderr(t *testing.T) {
	requirePython3(t)

	r := New()
	src := "import sys\nprint('out')\nprint('err', file=sys.stderr)\n"
	result, err := r.Eval(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestEvalNonZeroExitBecomesHandlerError(t *testing.T) {
	requirePython3(t)

	r := New()
	_, err := r.Eval(context.Background(), "raise ValueError('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
