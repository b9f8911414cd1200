package wire

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessageBalancedBraces(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte(`{"type":"get_scene_info","params":{}}`)
	go func() {
		client.Write(payload)
	}()

	got, err := ReadMessage(server, time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadMessageResumesAfterCoincidentallyBalancedPrefix(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	// The first write's brace count is already balanced (two opens for the
	// envelope and "params", two closes at the start of the code string),
	// but the document is not yet complete: the rest of the code string and
	// the envelope's closing braces are still in flight. ReadMessage must
	// not return until the second write.
	first := []byte(`{"type":"execute_code","params":{"code":"}}`)
	second := []byte(`{{"}}`)
	go func() {
		client.Write(first)
		time.Sleep(20 * time.Millisecond)
		client.Write(second)
	}()

	got, err := ReadMessage(server, time.Second)
	require.NoError(t, err)
	assert.Equal(t, append(first, second...), got)
}

func TestReadMessagePayloadTooLarge(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		// Never balances and never stops, forcing the accumulator past the cap.
		chunk := make([]byte, readChunkSize)
		for i := range chunk {
			chunk[i] = '{'
		}
		for i := 0; i < (MaxMessageBytes/readChunkSize)+2; i++ {
			if _, err := client.Write(chunk); err != nil {
				return
			}
		}
	}()

	_, err := ReadMessage(server, 5*time.Second)
	require.Error(t, err)
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindPayloadTooLarge, werr.Kind)
}

func TestReadMessageTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	_, err := ReadMessage(server, 20*time.Millisecond)
	require.Error(t, err)
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindTimeout, werr.Kind)
}

func TestWriteMessage(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, WriteMessage(server, []byte(`{"status":"success"}`), time.Second))
	got := <-done
	assert.Equal(t, `{"status":"success"}`, string(got))
}
