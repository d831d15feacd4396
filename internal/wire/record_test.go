package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

func TestRequestRoundTrip(t *testing.T) {
	r := Request{
		AppUID:       1000,
		AppPID:       -1,
		Feature:      42,
		AppStartTime: 1234567890123,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))
	assert.Equal(t, RequestRecordSize, buf.Len())

	got, err := DecodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestRequestEncodingIsLittleEndian(t *testing.T) {
	r := Request{AppUID: 0x01020304}
	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf.Bytes()[0:4])
}

func TestDecodeRequestShortReadFails(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, RequestRecordSize-1))
	_, err := DecodeRequest(buf)
	assert.Error(t, err)
}

func TestAnswerRoundTrip(t *testing.T) {
	for _, a := range []Answer{Answer(request.Denied), Answer(request.Granted)} {
		var buf bytes.Buffer
		require.NoError(t, a.Encode(&buf))
		assert.Equal(t, AnswerRecordSize, buf.Len())

		got, err := DecodeAnswer(&buf)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestDecodeAnswerShortReadFails(t *testing.T) {
	_, err := DecodeAnswer(bytes.NewBuffer(nil))
	assert.Error(t, err)
}
