package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/idmap"
)

func TestEncodeThenDecodeFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idmap.Identity{}, command.ProcessBacktraceRequest{ProcessID: 5}))

	frame, err := NewDecoder(&buf).Next()
	require.NoError(t, err)
	assert.Equal(t, command.CodeProcessBacktraceRequest, frame.Code)
	assert.Equal(t, int64(5), int64(binary.BigEndian.Uint64(frame.Payload)))
}

// TestCreateSnapshotRoundTrip exercises "encoding then decoding any
// outbound command payload yields equal fields" for CreateSnapshot,
// which reuses its own wire code for the reply (CreateSnapshotResult):
// both sides serialize a single string field in the same layout.
func TestCreateSnapshotRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idmap.Identity{}, command.CreateSnapshot{Path: "/tmp/x.snapshot"}))

	frame, err := NewDecoder(&buf).Next()
	require.NoError(t, err)

	decoded, err := command.Decode(frame.Code, frame.Payload, idmap.Identity{})
	require.NoError(t, err)

	result, ok := decoded.(command.CreateSnapshotResult)
	require.True(t, ok)
	assert.Equal(t, "/tmp/x.snapshot", result.Location)
}

func TestEncodeAppliesTranslatorToFunctionIDs(t *testing.T) {
	mapping := idmap.BuildMapping(
		idmap.NameOffsetMapping{FunctionOffsets: map[string]int64{"f": 7}},
		map[string]int64{"f": 900},
		nil,
	)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idmap.NewOffset(mapping), command.PushFromMap{Map: "methods", FunctionID: 7}))

	frame, err := NewDecoder(&buf).Next()
	require.NoError(t, err)

	// Payload is [string "methods"][int64 translated function id].
	nameLen := binary.BigEndian.Uint32(frame.Payload[0:4])
	idStart := 4 + nameLen
	got := binary.BigEndian.Uint64(frame.Payload[idStart : idStart+8])
	assert.Equal(t, uint64(900), got, "Encode must translate the symbolic id before it reaches the wire")
}

func TestDecoderRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 1<<31)
	buf.Write(header[:])

	_, err := NewDecoder(&buf).Next()
	require.Error(t, err)
	var frameErr *FrameError
	assert.True(t, errors.As(err, &frameErr))
}

func TestDecoderSurfacesConnectionClosedOnTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 1}) // declares a 1-byte body, then EOF

	_, err := NewDecoder(&buf).Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionClosed))
}
