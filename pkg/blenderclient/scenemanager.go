package blenderclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ObjectSummary is the parsed form of one entry from the OBJECTS_JSON
// sentinel line (spec.md §4.7).
type ObjectSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// pythonExecutor is the slice of Client that SceneManager depends on,
// narrowed so tests can substitute a fake without a live host connection.
type pythonExecutor interface {
	ExecutePython(ctx context.Context, code string, sendAsBase64, returnAsBase64 bool) (string, error)
}

// SceneManager is the illustrative higher-level helper spec.md §4.7
// describes: it has no server-side counterpart, only execute_code programs
// with well-known sentinel markers on stdout that this type knows how to
// parse. It demonstrates the pattern, not a closed set of operations —
// callers needing something else write their own execute_code program.
type SceneManager struct {
	client pythonExecutor
}

// NewSceneManager wraps an existing Client.
func NewSceneManager(c *Client) *SceneManager {
	return &SceneManager{client: c}
}

const objectsJSONSentinel = "OBJECTS_JSON:"
const objectNameSentinel = "OBJECT_NAME:"
const objectErrorSentinel = "OBJECT_ERROR:"

func sentinelLine(stdout, prefix string) (string, bool) {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}

// ListObjects returns every object currently in the scene.
func (m *SceneManager) ListObjects(ctx context.Context) ([]ObjectSummary, error) {
	code := `import bpy, json
objs = [{"name": o.name, "type": o.type} for o in bpy.data.objects]
print("` + objectsJSONSentinel + `" + json.dumps(objs))
`
	stdout, err := m.client.ExecutePython(ctx, code, true, true)
	if err != nil {
		return nil, err
	}

	payload, ok := sentinelLine(stdout, objectsJSONSentinel)
	if !ok {
		return nil, fmt.Errorf("blenderclient: no %s sentinel in execute_code output", objectsJSONSentinel)
	}

	var objects []ObjectSummary
	if err := json.Unmarshal([]byte(payload), &objects); err != nil {
		return nil, fmt.Errorf("blenderclient: parse object list: %w", err)
	}
	return objects, nil
}

// CreatePrimitive adds a primitive of the given kind ("cube", "sphere",
// "cylinder", "cone", "plane") named name, returning the object's actual
// name (Blender may disambiguate a collision) or an error parsed from the
// OBJECT_ERROR sentinel.
func (m *SceneManager) CreatePrimitive(ctx context.Context, kind, name string) (string, error) {
	op, ok := primitiveOps[kind]
	if !ok {
		return "", fmt.Errorf("blenderclient: unknown primitive kind %q", kind)
	}

	code := fmt.Sprintf(`import bpy
try:
    bpy.ops.mesh.%s()
    obj = bpy.context.active_object
    obj.name = %q
    print("%s" + obj.name)
except Exception as e:
    print("%s" + str(e))
`, op, name, objectNameSentinel, objectErrorSentinel)

	stdout, err := m.client.ExecutePython(ctx, code, true, true)
	if err != nil {
		return "", err
	}
	if msg, ok := sentinelLine(stdout, objectErrorSentinel); ok {
		return "", fmt.Errorf("blenderclient: create primitive failed: %s", msg)
	}
	if createdName, ok := sentinelLine(stdout, objectNameSentinel); ok {
		return createdName, nil
	}
	return "", fmt.Errorf("blenderclient: no sentinel in create-primitive output")
}

var primitiveOps = map[string]string{
	"cube":     "primitive_cube_add",
	"sphere":   "primitive_uv_sphere_add",
	"cylinder": "primitive_cylinder_add",
	"cone":     "primitive_cone_add",
	"plane":    "primitive_plane_add",
}

// DeleteObject removes the named object from the scene.
func (m *SceneManager) DeleteObject(ctx context.Context, name string) error {
	code := fmt.Sprintf(`import bpy
try:
    obj = bpy.data.objects[%q]
    bpy.data.objects.remove(obj, do_unlink=True)
    print("%sdeleted")
except Exception as e:
    print("%s" + str(e))
`, name, objectNameSentinel, objectErrorSentinel)

	stdout, err := m.client.ExecutePython(ctx, code, true, true)
	if err != nil {
		return err
	}
	if msg, ok := sentinelLine(stdout, objectErrorSentinel); ok {
		return fmt.Errorf("blenderclient: delete object failed: %s", msg)
	}
	return nil
}

// MoveObject sets the named object's world-space location.
func (m *SceneManager) MoveObject(ctx context.Context, name string, x, y, z float64) error {
	code := fmt.Sprintf(`import bpy
try:
    obj = bpy.data.objects[%q]
    obj.location = (%f, %f, %f)
    print("%smoved")
except Exception as e:
    print("%s" + str(e))
`, name, x, y, z, objectNameSentinel, objectErrorSentinel)

	stdout, err := m.client.ExecutePython(ctx, code, true, true)
	if err != nil {
		return err
	}
	if msg, ok := sentinelLine(stdout, objectErrorSentinel); ok {
		return fmt.Errorf("blenderclient: move object failed: %s", msg)
	}
	return nil
}

// RenameObject renames oldName to newName, returning the name Blender
// actually assigned (it disambiguates collisions by appending a suffix).
func (m *SceneManager) RenameObject(ctx context.Context, oldName, newName string) (string, error) {
	code := fmt.Sprintf(`import bpy
try:
    obj = bpy.data.objects[%q]
    obj.name = %q
    print("%s" + obj.name)
except Exception as e:
    print("%s" + str(e))
`, oldName, newName, objectNameSentinel, objectErrorSentinel)

	stdout, err := m.client.ExecutePython(ctx, code, true, true)
	if err != nil {
		return "", err
	}
	if msg, ok := sentinelLine(stdout, objectErrorSentinel); ok {
		return "", fmt.Errorf("blenderclient: rename object failed: %s", msg)
	}
	if actual, ok := sentinelLine(stdout, objectNameSentinel); ok {
		return actual, nil
	}
	return "", fmt.Errorf("blenderclient: no sentinel in rename output")
}

// ExportObjectAsGLB exports the named object as a standalone glTF binary
// asset and returns its raw bytes (spec.md §4.7: "the handler reads and
// returns them base64-encoded in result"). The synthesized program writes
// to a host-local temp path and then prints that file's own base64 content
// as its entire stdout, so no sentinel parsing is needed for the binary
// payload itself.
func (m *SceneManager) ExportObjectAsGLB(ctx context.Context, name string) ([]byte, error) {
	code := fmt.Sprintf(`import bpy, base64, tempfile, os
obj = bpy.data.objects[%q]
bpy.ops.object.select_all(action='DESELECT')
obj.select_set(True)
bpy.context.view_layer.objects.active = obj
path = tempfile.mktemp(suffix=".glb")
bpy.ops.export_scene.gltf(filepath=path, use_selection=True, export_format='GLB')
with open(path, "rb") as f:
    data = f.read()
os.remove(path)
print(base64.b64encode(data).decode("ascii"))
`, name)

	stdout, err := m.client.ExecutePython(ctx, code, true, false)
	if err != nil {
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(stdout))
	if err != nil {
		return nil, fmt.Errorf("blenderclient: decode exported asset: %w", err)
	}
	return decoded, nil
}
