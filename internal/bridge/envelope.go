package bridge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/heterosync/dbsync/internal/model"
)

// envelope is the Debezium-shaped wire format spec §4.7 describes: a
// JSON object with a payload carrying op/before/after/source.
type envelope struct {
	Payload struct {
		Op     string                 `json:"op"`
		Before map[string]interface{} `json:"before"`
		After  map[string]interface{} `json:"after"`
		Source struct {
			Table string `json:"table"`
			TsMs  *int64 `json:"ts_ms"`
		} `json:"source"`
		TsMs        *int64 `json:"ts_ms"`
		Transaction *struct {
			ID string `json:"id"`
		} `json:"transaction"`
	} `json:"payload"`
}

var opTable = map[string]model.OperationType{
	"c": model.OpCreate,
	"u": model.OpUpdate,
	"d": model.OpDelete,
	"r": model.OpRead,
}

// decodeEnvelope parses raw into a ChangeEvent. An unrecognized op
// value defaults to READ rather than erroring, per spec's decoding
// rule and testable property 8.
func decodeEnvelope(raw []byte) (model.ChangeEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.ChangeEvent{}, err
	}

	op, ok := opTable[env.Payload.Op]
	if !ok {
		op = model.OpRead
	}

	tsMs := env.Payload.TsMs
	if tsMs == nil {
		tsMs = env.Payload.Source.TsMs
	}
	var ts *time.Time
	if tsMs != nil {
		t := time.UnixMilli(*tsMs)
		ts = &t
	}

	// The envelope's own transaction id, when Debezium includes one, ties
	// every change in the same source transaction together for anything
	// downstream that groups by it. When absent, synthesize one so every
	// event still carries a stable, unique identifier through the
	// pipeline rather than an empty string.
	var txID string
	if env.Payload.Transaction != nil && env.Payload.Transaction.ID != "" {
		txID = env.Payload.Transaction.ID
	} else {
		txID = uuid.NewString()
	}

	sourceMetadata := map[string]interface{}{
		"table": env.Payload.Source.Table,
	}
	if env.Payload.Source.TsMs != nil {
		sourceMetadata["ts_ms"] = *env.Payload.Source.TsMs
	}

	return model.ChangeEvent{
		Operation:      op,
		TableName:      env.Payload.Source.Table,
		Before:         env.Payload.Before,
		After:          env.Payload.After,
		SourceMetadata: sourceMetadata,
		Timestamp:      ts,
		TransactionID:  txID,
	}, nil
}
