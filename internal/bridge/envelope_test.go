package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heterosync/dbsync/internal/model"
)

func TestDecodeEnvelope_InsertEvent(t *testing.T) {
	// S2: insert event round trip.
	raw := []byte(`{"payload":{"op":"c","after":{"id":1,"name":"X"},"source":{"table":"t","ts_ms":0}}}`)

	event, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, model.OpCreate, event.Operation)
	assert.Equal(t, "t", event.TableName)
	assert.Equal(t, float64(1), event.After["id"])
	assert.Equal(t, "X", event.After["name"])
	require.NotNil(t, event.Timestamp)
}

func TestDecodeEnvelope_UnknownOpDefaultsToRead(t *testing.T) {
	raw := []byte(`{"payload":{"op":"x","source":{"table":"t"}}}`)

	event, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, model.OpRead, event.Operation)
}

func TestDecodeEnvelope_MissingOpDefaultsToRead(t *testing.T) {
	raw := []byte(`{"payload":{"source":{"table":"t"}}}`)

	event, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, model.OpRead, event.Operation)
}

func TestDecodeEnvelope_TimestampPrefersPayloadOverSource(t *testing.T) {
	raw := []byte(`{"payload":{"op":"u","ts_ms":5000,"source":{"table":"t","ts_ms":1000}}}`)

	event, err := decodeEnvelope(raw)
	require.NoError(t, err)
	require.NotNil(t, event.Timestamp)
	assert.Equal(t, int64(5000), event.Timestamp.UnixMilli())
}

func TestDecodeEnvelope_TransactionIDSynthesizedWhenAbsent(t *testing.T) {
	raw := []byte(`{"payload":{"op":"d","source":{"table":"t"}}}`)

	event, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, event.TransactionID)
}

func TestDecodeEnvelope_InvalidJSONErrors(t *testing.T) {
	_, err := decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
