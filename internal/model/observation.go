// Package model is the in-memory data model described in spec §3: station
// buckets of observations ordered most-recent-first, a producer liveness
// table, and the most-recent pointer. It is the generalized descendant of
// the teacher's types.DataHolder/StorageEntry (pkg/mcast/types/data.go) and
// types.InMemoryStateMachine (pkg/mcast/types/state_machine.go): where the
// teacher's state machine committed opaque DataHolder content keyed by a
// protocol-assigned UID, this one stores JSON observation bodies keyed by
// station ID and ordered by Lamport timestamp instead.
package model

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI is the jsoniter codec used throughout this package in place of
// encoding/json, following mjnovice-aistore's ais/* convention of aliasing
// a drop-in jsoniter config wherever the standard library would otherwise
// be called directly.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Observation is one PUT's payload: an opaque JSON body naming a station,
// stamped with the Lamport time of receipt and the producer that sent it.
// Observations are immutable once stored (spec §3).
type Observation struct {
	StationID string
	Body      json.RawMessage
	Timestamp uint64
	Producer  string
}

// stationBody is the shape used only to pull the required "id" field out of
// an arbitrary PUT body without needing to know any other field.
type stationBody struct {
	ID string `json:"id"`
}

// ParseObservation decodes body as JSON and extracts the required station
// id. It returns ErrMalformedBody for unparseable JSON and ErrMissingID
// when "id" is absent or empty, matching the 400 JSON Error / 400 Null
// StationId responses in spec §4.5.
func ParseObservation(body []byte, timestamp uint64, producer string) (Observation, error) {
	if !jsonAPI.Valid(body) {
		return Observation{}, ErrMalformedBody
	}
	var sb stationBody
	if err := jsonAPI.Unmarshal(body, &sb); err != nil {
		return Observation{}, ErrMalformedBody
	}
	if sb.ID == "" {
		return Observation{}, ErrMissingID
	}
	return Observation{
		StationID: sb.ID,
		Body:      append(json.RawMessage(nil), body...),
		Timestamp: timestamp,
		Producer:  producer,
	}, nil
}
