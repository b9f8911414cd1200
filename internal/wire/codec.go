package wire

import "encoding/json"

// DecodeRequest parses a single JSON document into a Request. Unknown
// top-level keys are ignored per spec.md §3 (encoding/json already does
// this for unrecognized fields).
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, Wrap(KindDecodeError, err, "malformed request JSON")
	}
	return req, nil
}

// EncodeResponse serializes a Response to its wire form.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, Wrap(KindDecodeError, err, "failed to encode response")
	}
	return data, nil
}

// DecodeResponse parses a single JSON document into a Response. Used by
// clients (C6 adapter, C7 SDK) reading a reply off the wire.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, Wrap(KindDecodeError, err, "malformed response JSON")
	}
	return resp, nil
}
