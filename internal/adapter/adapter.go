// Package adapter is the model-context-protocol front end (spec.md C6): it
// runs as its own process, speaks MCP over stdio via mark3labs/mcp-go, and
// translates each tool call into a fresh TCP client session against C4
// (using the same pkg/blenderclient the external SDK uses).
package adapter

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/scenebridge/blenderforge/internal/artifact"
	"github.com/scenebridge/blenderforge/internal/wire"
	"github.com/scenebridge/blenderforge/pkg/blenderclient"
)

// Config carries the adapter's C4 target host and port. It has no timeout
// setting: requests use blenderclient.DefaultTimeout unless the tool call's
// context carries an earlier deadline.
type Config struct {
	TargetHost string
	TargetPort uint16
}

// Adapter owns the MCP server and the client used to reach C4.
type Adapter struct {
	client *blenderclient.Client
	mcp    *server.MCPServer
}

// New builds an Adapter wired against cfg's C4 target and registers the
// C5-mirroring tool set plus convenience tools.
func New(cfg Config) *Adapter {
	a := &Adapter{
		client: blenderclient.New(cfg.TargetHost, cfg.TargetPort),
		mcp:    server.NewMCPServer("blenderforge-adapter", "1.0.0"),
	}
	a.registerTools()
	return a
}

// Serve runs the adapter over stdio until the transport closes.
func (a *Adapter) Serve() error {
	return server.ServeStdio(a.mcp)
}

func (a *Adapter) registerTools() {
	a.mcp.AddTool(mcp.NewTool("get_scene_info",
		mcp.WithDescription("Return the current scene's name, objects, and frame range."),
	), a.handleGetSceneInfo)

	a.mcp.AddTool(mcp.NewTool("get_object_info",
		mcp.WithDescription("Return detailed info for one named object."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Object name")),
	), a.handleGetObjectInfo)

	a.mcp.AddTool(mcp.NewTool("execute_code",
		mcp.WithDescription("Execute arbitrary source on the host and capture stdout/stderr."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to execute")),
	), a.handleExecuteCode)

	a.mcp.AddTool(mcp.NewTool("get_viewport_screenshot",
		mcp.WithDescription("Capture the current viewport as an image (GUI mode only)."),
		mcp.WithNumber("max_size", mcp.Description("Longest-side cap in pixels, default 800")),
		mcp.WithString("format", mcp.Description("png or jpeg, default png")),
	), a.handleGetViewportScreenshot)

	a.mcp.AddTool(mcp.NewTool("server_shutdown",
		mcp.WithDescription("Ask the host service to stop."),
	), a.handleServerShutdown)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if m, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// toolError converts any error reaching the adapter boundary into a
// structured tool-result error rather than letting the call hang or panic
// the MCP server (spec.md §4.6: "the adapter MUST tolerate the target
// being down ... returns a structured error rather than hanging").
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func (a *Adapter) handleGetSceneInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := a.client.SendCommand(ctx, "get_scene_info", nil)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (a *Adapter) handleGetObjectInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := arguments(request)["name"].(string)
	if !ok || name == "" {
		return toolError(fmt.Errorf("name is required"))
	}

	result, err := a.client.SendCommand(ctx, "get_object_info", map[string]interface{}{"name": name})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

// handleExecuteCode defaults code_is_base64 and return_as_base64 to true
// (spec.md §4.6): model-generated source frequently contains characters
// that corrupt JSON when embedded raw. Callers may set either to false.
func (a *Adapter) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	code, ok := args["code"].(string)
	if !ok || code == "" {
		return toolError(fmt.Errorf("code is required"))
	}

	sendAsBase64 := boolArgOr(args, "code_is_base64", true)
	returnAsBase64 := boolArgOr(args, "return_as_base64", true)

	stdout, err := a.client.ExecutePython(ctx, code, sendAsBase64, returnAsBase64)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(stdout), nil
}

func boolArgOr(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// handleGetViewportScreenshot captures the viewport via C4/C5, then reads
// the artifact file off the host filesystem, base64-encodes it as an image
// content part, and deletes it (spec.md §4.6 step 4). A failed read
// returns an error without silently dropping the artifact.
func (a *Adapter) handleGetViewportScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := map[string]interface{}{}
	if format, ok := args["format"].(string); ok && format != "" {
		params["format"] = format
	}
	if maxSize, ok := args["max_size"].(float64); ok {
		params["max_size"] = maxSize
	}

	result, err := a.client.SendCommand(ctx, "get_viewport_screenshot", params)
	if err != nil {
		return toolError(err)
	}

	path, ok := result["filepath"].(string)
	if !ok || path == "" {
		return toolError(fmt.Errorf("get_viewport_screenshot reply missing filepath"))
	}

	data, err := artifact.ReadAndDelete(path)
	if err != nil {
		return toolError(fmt.Errorf("reading viewport artifact: %w", err))
	}

	mimeType := "image/png"
	if format, ok := result["format"].(string); ok && format == "jpeg" {
		mimeType = "image/jpeg"
	}

	return mcp.NewToolResultImage("viewport screenshot", encodeBase64(data), mimeType), nil
}

func (a *Adapter) handleServerShutdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := a.client.SendCommand(ctx, "server_shutdown", nil)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func jsonResult(result map[string]interface{}) (*mcp.CallToolResult, error) {
	payload, err := wire.Marshal(result)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
