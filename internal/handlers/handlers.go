// Package handlers implements the host-side command set (spec.md C5):
// scene introspection, arbitrary code execution, and viewport capture. Each
// handler reads/writes through the hostapi interfaces so the real host
// application's scene and scripting APIs stay opaque (spec.md §1).
package handlers

import (
	"context"
	"time"

	"github.com/scenebridge/blenderforge/internal/artifact"
	"github.com/scenebridge/blenderforge/internal/hostapi"
	"github.com/scenebridge/blenderforge/internal/registry"
	"github.com/scenebridge/blenderforge/internal/wire"
)

// Host bundles everything a handler needs from its environment: the opaque
// host APIs (spec.md §1), a temp directory for viewport artifacts, and a
// shutdown trigger for server_shutdown.
type Host struct {
	Scene    hostapi.SceneHost
	Code     hostapi.CodeRuntime
	Viewport hostapi.ViewportCapturer // nil in headless mode
	TempDir  string

	// RequestShutdown is invoked asynchronously by the server_shutdown
	// handler (spec.md §4.5: "Returns success immediately then triggers an
	// asynchronous stop so the reply can actually be delivered" — calling
	// it synchronously from inside a handler would deadlock the dispatcher
	// waiting on its own run loop).
	RequestShutdown func()
}

// Register adds the full C5 command set to reg.
func Register(reg *registry.Registry, h *Host) error {
	cmds := []registry.Command{
		{Type: "get_scene_info", Handler: h.getSceneInfo},
		{
			Type:    "get_object_info",
			Schema:  objectInfoSchema,
			Handler: h.getObjectInfo,
		},
		{
			Type:    "execute_code",
			Schema:  executeCodeSchema,
			Handler: h.executeCode,
		},
		{
			Type:    "get_viewport_screenshot",
			Schema:  viewportSchema,
			Handler: h.getViewportScreenshot,
		},
		{Type: "server_shutdown", Handler: h.serverShutdown},
	}
	for _, cmd := range cmds {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

var objectInfoSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"name"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
	},
}

var executeCodeSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"code"},
	"properties": map[string]interface{}{
		"code":             map[string]interface{}{"type": "string"},
		"code_is_base64":   map[string]interface{}{"type": "boolean"},
		"return_as_base64": map[string]interface{}{"type": "boolean"},
	},
}

var viewportSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"filepath": map[string]interface{}{"type": "string"},
		"max_size": map[string]interface{}{"type": "number"},
		"format":   map[string]interface{}{"type": "string", "enum": []string{"png", "jpeg"}},
	},
}

func (h *Host) getSceneInfo(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	snap, err := h.Scene.SceneSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	objects := make([]map[string]interface{}, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		objects = append(objects, map[string]interface{}{
			"name":     o.Name,
			"type":     o.Type,
			"location": []float64{o.Location[0], o.Location[1], o.Location[2]},
		})
	}

	return map[string]interface{}{
		"name":            snap.Name,
		"object_count":    len(snap.Objects),
		"objects":         objects,
		"materials_count": snap.MaterialsCount,
		"frame_current":   snap.FrameCurrent,
		"frame_start":     snap.FrameStart,
		"frame_end":       snap.FrameEnd,
	}, nil
}

func (h *Host) getObjectInfo(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	name, _ := wire.ParamString(params, "name")

	info, err := h.Scene.ObjectInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"name":     info.Name,
		"type":     info.Type,
		"location": []float64{info.Location[0], info.Location[1], info.Location[2]},
		"rotation": []float64{info.Rotation[0], info.Rotation[1], info.Rotation[2]},
		"scale":    []float64{info.Scale[0], info.Scale[1], info.Scale[2]},
		"visible":  info.Visible,
	}, nil
}

func (h *Host) executeCode(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	code, _ := wire.ParamString(params, "code")
	if wire.ParamBool(params, "code_is_base64") {
		decoded, err := wire.DecodeCodeB64(code)
		if err != nil {
			return nil, err
		}
		code = decoded
	}

	start := time.Now()
	execResult, err := h.Code.Eval(ctx, code)
	duration := time.Since(start).Seconds()
	if err != nil {
		return nil, err
	}

	resultText := execResult.Stdout
	result := map[string]interface{}{
		"executed": true,
		"output": map[string]interface{}{
			"stdout": execResult.Stdout,
			"stderr": execResult.Stderr,
		},
		"duration": duration,
	}

	if wire.ParamBool(params, "return_as_base64") {
		result["result"] = wire.EncodeCodeB64(resultText)
		result["result_is_base64"] = true
	} else {
		result["result"] = resultText
	}

	return result, nil
}

func (h *Host) getViewportScreenshot(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	if h.Viewport == nil {
		return nil, wire.NewError(wire.KindUnsupportedInHeadless, "get_viewport_screenshot requires a display; server is running headless")
	}

	format, _ := wire.ParamString(params, "format")
	if format == "" {
		format = artifact.DefaultFormat
	}
	if !artifact.ValidFormat(format) {
		return nil, wire.NewError(wire.KindInvalidParams, "unsupported format %q", format)
	}

	maxSize := artifact.DefaultMaxSize
	if v, ok := wire.ParamFloat64(params, "max_size"); ok {
		maxSize = int(v)
	}

	path, _ := wire.ParamString(params, "filepath")
	if path == "" {
		path = artifact.NewPath(h.TempDir, format)
	}

	width, height, err := h.Viewport.CaptureViewport(ctx, hostapi.ViewportOptions{
		Filepath: path,
		MaxSize:  maxSize,
		Format:   format,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"width":    width,
		"height":   height,
		"filepath": path,
		"format":   format,
	}, nil
}

func (h *Host) serverShutdown(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	if h.RequestShutdown != nil {
		go h.RequestShutdown()
	}
	return map[string]interface{}{"accepted": true}, nil
}
