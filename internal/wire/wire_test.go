package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []Request{
		{Type: "get_scene_info"},
		{Type: "execute_code", Params: map[string]interface{}{"code": "print(1)"}},
		{},
	}

	for _, want := range cases {
		data, err := Marshal(want)
		require.NoError(t, err)

		got, err := DecodeRequest(data)
		require.NoError(t, err)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Params, got.Params)
	}
}

func TestDecodeRequestIgnoresUnknownKeys(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"get_scene_info","bogus":123}`))
	require.NoError(t, err)
	assert.Equal(t, "get_scene_info", req.Type)
}

func TestDecodeRequestAbsentFieldsDefaultEmpty(t *testing.T) {
	req, err := DecodeRequest([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, req.Type)
	assert.Nil(t, req.Params)
}

func TestBase64RoundTrip(t *testing.T) {
	samples := []string{
		`print("""hi""")`,
		"line one\nline two\n",
		"print('α')",
	}
	for _, s := range samples {
		decoded, err := DecodeCodeB64(EncodeCodeB64(s))
		require.NoError(t, err)
		assert.Equal(t, s, decoded)
	}
}

func TestBalanced(t *testing.T) {
	assert.True(t, balanced([]byte(`{"a":{"b":1}}`)))
	assert.False(t, balanced([]byte(`{"a":{"b":1}`)))
	assert.False(t, balanced(nil))
	assert.False(t, balanced([]byte(`no braces here`)))
}

func TestParsableRejectsCoincidentallyBalancedPrefix(t *testing.T) {
	// A still in-flight execute_code request whose code string starts with
	// two closing braces: they offset the two open envelope braces, so the
	// counts are equal before the rest of the string and the envelope's
	// closing `}}` have arrived.
	truncated := []byte(`{"type":"execute_code","params":{"code":"}}`)
	assert.True(t, balanced(truncated))
	assert.False(t, parsable(truncated))

	complete := []byte(`{"type":"execute_code","params":{"code":"}}{{"}}`)
	assert.True(t, parsable(complete))
}

func TestResponseEncodeDecode(t *testing.T) {
	want := Success(map[string]interface{}{"object_count": float64(3)})
	data, err := EncodeResponse(want)
	require.NoError(t, err)

	got, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, want.Result, got.Result)
}

func TestFailureCarriesSource(t *testing.T) {
	resp := Failure("execute_code", "boom")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "boom", resp.Message)
	assert.Equal(t, "execute_code", resp.Source)
}
