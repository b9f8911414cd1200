package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenebridge/blenderforge/internal/wire"
)

func TestDispatchUnknownCommand(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), wire.Request{Type: "nope"})
	require.Error(t, err)

	var werr *wire.Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, wire.KindUnknownCommand, werr.Kind)
	assert.Contains(t, werr.Error(), "nope")
}

func TestDispatchRunsHandler(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Command{
		Type: "ping",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"pong": true}, nil
		},
	}))

	result, err := r.Dispatch(context.Background(), wire.Request{Type: "ping"})
	require.NoError(t, err)
	assert.Equal(t, true, result["pong"])
}

func TestDispatchValidatesRequiredParam(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Command{
		Type: "get_object_info",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"name"},
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			name, _ := wire.ParamString(params, "name")
			return map[string]interface{}{"name": name}, nil
		},
	}))

	_, err := r.Dispatch(context.Background(), wire.Request{Type: "get_object_info"})
	require.Error(t, err)
	var werr *wire.Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, wire.KindInvalidParams, werr.Kind)

	result, err := r.Dispatch(context.Background(), wire.Request{
		Type:   "get_object_info",
		Params: map[string]interface{}{"name": "Cube"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cube", result["name"])
}

func TestDispatchRejectsWrongParamType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Command{
		Type: "get_object_info",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"name"},
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, nil
		},
	}))

	_, err := r.Dispatch(context.Background(), wire.Request{
		Type:   "get_object_info",
		Params: map[string]interface{}{"name": 123},
	})
	require.Error(t, err)
	var werr *wire.Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, wire.KindInvalidParams, werr.Kind)
}
