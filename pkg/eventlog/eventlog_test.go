package eventlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func writeLog(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < n; i++ {
		env, err := types.NewEnvelope(fmt.Sprintf("stream/%d", i%3), time.UnixMilli(int64(100+i)), wrapperspb.Int64(int64(i)))
		require.NoError(t, err)
		require.NoError(t, w.Write(env))
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	data := writeLog(t, 5)

	envs, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, envs, 5)
	for i, env := range envs {
		assert.Equal(t, fmt.Sprintf("stream/%d", i%3), env.Name)
		assert.Equal(t, int64(100+i), types.Millis(env.Stamp))
	}
}

func TestRecordLayout(t *testing.T) {
	env := &types.Envelope{Name: "a", Stamp: time.UnixMilli(5)}
	body, err := env.MarshalBinary()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write(env))

	data := buf.Bytes()
	require.Len(t, data, 2+len(body))
	assert.Equal(t, uint16(len(body)), binary.LittleEndian.Uint16(data[:2]))
	assert.Equal(t, body, data[2:])
}

func TestEmptyLog(t *testing.T) {
	envs, err := ReadAll(bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.Empty(t, envs)
}

func TestTrailingByteIsIgnored(t *testing.T) {
	data := append(writeLog(t, 2), 0x07)

	r := NewReader(bytes.NewReader(data))
	for i := 0; i < 2; i++ {
		_, err := r.Next()
		require.NoError(t, err)
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, r.Records())
}

func TestTruncatedRecord(t *testing.T) {
	data := writeLog(t, 3)
	data = data[:len(data)-1]

	envs, err := ReadAll(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTruncatedRecord)
	assert.Len(t, envs, 2)
}

func TestMalformedRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRaw([]byte{0x80}))

	_, err := ReadAll(&buf)
	assert.ErrorIs(t, err, types.ErrMalformedEnvelope)
}

func TestRecordTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteRaw(make([]byte, MaxRecordSize+1))
	assert.ErrorIs(t, err, ErrRecordTooLarge)
	assert.Zero(t, buf.Len())

	require.NoError(t, NewWriter(&buf).WriteRaw(make([]byte, MaxRecordSize)))
	assert.Equal(t, 2+MaxRecordSize, buf.Len())
}
