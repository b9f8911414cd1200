package blenderclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	stdout string
	err    error
	lastCode string
}

func (f *fakeExecutor) ExecutePython(ctx context.Context, code string, sendAsBase64, returnAsBase64 bool) (string, error) {
	f.lastCode = code
	return f.stdout, f.err
}

func TestListObjectsParsesSentinel(t *testing.T) {
	fx := &fakeExecutor{stdout: "some banner\nOBJECTS_JSON:[{\"name\":\"Cube\",\"type\":\"MESH\"}]\n"}
	m := &SceneManager{client: fx}

	objs, err := m.ListObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "Cube", objs[0].Name)
	assert.Equal(t, "MESH", objs[0].Type)
}

func TestListObjectsMissingSentinelErrors(t *testing.T) {
	fx := &fakeExecutor{stdout: "nothing useful\n"}
	m := &SceneManager{client: fx}

	_, err := m.ListObjects(context.Background())
	assert.Error(t, err)
}

func TestCreatePrimitiveSuccess(t *testing.T) {
	fx := &fakeExecutor{stdout: "OBJECT_NAME:Cube.002\n"}
	m := &SceneManager{client: fx}

	name, err := m.CreatePrimitive(context.Background(), "cube", "Cube")
	require.NoError(t, err)
	assert.Equal(t, "Cube.002", name)
}

func TestCreatePrimitiveFailureSentinel(t *testing.T) {
	fx := &fakeExecutor{stdout: "OBJECT_ERROR:out of memory\n"}
	m := &SceneManager{client: fx}

	_, err := m.CreatePrimitive(context.Background(), "cube", "Cube")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestCreatePrimitiveUnknownKind(t *testing.T) {
	m := &SceneManager{client: &fakeExecutor{}}

	_, err := m.CreatePrimitive(context.Background(), "torus", "Donut")
	require.Error(t, err)
}

func TestDeleteObjectSuccess(t *testing.T) {
	fx := &fakeExecutor{stdout: "OBJECT_NAME:deleted\n"}
	m := &SceneManager{client: fx}

	err := m.DeleteObject(context.Background(), "Cube")
	require.NoError(t, err)
}

func TestRenameObjectReturnsActualName(t *testing.T) {
	fx := &fakeExecutor{stdout: "OBJECT_NAME:Sphere.001\n"}
	m := &SceneManager{client: fx}

	actual, err := m.RenameObject(context.Background(), "Sphere", "Sphere.001")
	require.NoError(t, err)
	assert.Equal(t, "Sphere.001", actual)
}

func TestExportObjectAsGLBDecodesBase64(t *testing.T) {
	fx := &fakeExecutor{stdout: "aGVsbG8=\n"} // base64("hello")
	m := &SceneManager{client: fx}

	data, err := m.ExportObjectAsGLB(context.Background(), "Cube")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
