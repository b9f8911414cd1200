// Package blenderclient is the external client SDK (spec.md C7): a thin
// synchronous client over the C4 connection server's one-request-per-
// connection protocol, plus a scene-manager helper that composes
// execute_code programs into named operations (spec.md §4.7).
//
// The server runs one job at a time on its main thread. An execute_code
// program that uses this client to send a command back to the same server
// and waits for the reply deadlocks: the nested job is never drained while
// the outer one runs. Nothing here detects that case.
package blenderclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"time"

	"github.com/scenebridge/blenderforge/internal/wire"
)

// DefaultTimeout is applied to SendCommand/ExecutePython when the caller
// does not supply a context deadline (spec.md §4.7).
const DefaultTimeout = 30 * time.Second

// CommandError is returned by SendCommand when the server replies with an
// error status. It preserves the response's source/message diagnostics
// (spec.md §3) for callers that want to branch on them.
type CommandError struct {
	Source  string
	Message string
}

func (e *CommandError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}
	return e.Message
}

// Client is a synchronous client for one C4 server. Connection is per call
// by default: each SendCommand dials a fresh TCP connection, matching the
// one-request-per-connection server contract (spec.md §4.4).
type Client struct {
	Host    string
	Port    uint16
	Timeout time.Duration
}

// New returns a Client targeting host:port with DefaultTimeout.
func New(host string, port uint16) *Client {
	return &Client{Host: host, Port: port, Timeout: DefaultTimeout}
}

func (c *Client) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// SendCommand opens a fresh connection, sends a framed request of the given
// type and params, and returns the decoded result or a *CommandError/dial
// error (spec.md §4.7: "send_command(type, params) → result-or-raise").
// The target being unreachable returns a plain dial error rather than
// hanging, matching the adapter's "tolerate the target being down"
// requirement (spec.md §4.6) that this client shares the transport with.
func (c *Client) SendCommand(ctx context.Context, typ string, params map[string]interface{}) (map[string]interface{}, error) {
	timeout := c.timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			timeout = remaining
		}
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.addr(), err)
	}
	defer conn.Close()

	req := wire.Request{Type: typ, Params: params, TimeoutSeconds: timeout.Seconds()}
	payload, err := wire.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := wire.WriteMessage(conn, payload, timeout); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	data, err := wire.ReadMessage(conn, timeout)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	resp, err := wire.DecodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if resp.Status == wire.StatusError {
		return nil, &CommandError{Source: resp.Source, Message: resp.Message}
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		// Some commands (none currently) might reply with a non-object
		// result; normalize to an empty map rather than panicking callers.
		result = map[string]interface{}{}
	}
	return result, nil
}

// ExecutePython runs code on the host and returns its captured stdout
// (spec.md §4.7). The callers in this module pass true for both
// sendAsBase64 and returnAsBase64 (except ExportObjectAsGLB's
// returnAsBase64): model- or user-authored source frequently contains
// characters that corrupt JSON when embedded raw.
func (c *Client) ExecutePython(ctx context.Context, code string, sendAsBase64, returnAsBase64 bool) (string, error) {
	params := map[string]interface{}{}
	if sendAsBase64 {
		params["code"] = wire.EncodeCodeB64(code)
		params["code_is_base64"] = true
	} else {
		params["code"] = code
	}
	if returnAsBase64 {
		params["return_as_base64"] = true
	}

	result, err := c.SendCommand(ctx, "execute_code", params)
	if err != nil {
		return "", err
	}

	resultText, _ := result["result"].(string)
	if returnAsBase64 {
		decoded, err := base64.StdEncoding.DecodeString(resultText)
		if err != nil {
			return "", fmt.Errorf("decode execute_code result: %w", err)
		}
		return string(decoded), nil
	}
	return resultText, nil
}
