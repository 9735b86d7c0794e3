// Package checkpoint implements spec §4.7/§6: periodic JSON snapshotting
// of the aggregator's full in-memory state, and restore-on-startup.
//
// The persistence boundary is the generalized descendant of the teacher's
// types.Storage interface (pkg/mcast/types/storage.go, a plain Set/Get
// pair): here Store.Save/Load round-trip a whole model.Snapshot instead of
// a single StorageEntry, but it is the same "opaque persistence boundary
// behind a narrow interface" idiom.
package checkpoint

import (
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/jabolina/weatherlink/internal/model"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// fileShape is the on-disk JSON layout specified verbatim in spec §6.
type fileShape struct {
	WeatherDataMap      map[string][]json.RawMessage `json:"weatherDataMap"`
	ServerTimestampMap  map[string]int64              `json:"serverTimestampMap"`
	MostRecentStationID string                        `json:"mostRecentStationId"`
	LatestPutTimestamp  uint64                         `json:"latestPutTimestamp"`
	LamportTime         uint64                         `json:"lamportTime"`
}

// encode flattens a model.Snapshot plus the clock value into fileShape.
// Each observation's Lamport timestamp and producer id are merged directly
// into its JSON body (as "timestamp" and "ServerId"), matching the wire
// layout in spec §6 where array elements are "<observation fields>" plus
// those two keys.
func encode(snap model.Snapshot, lamport uint64) (fileShape, error) {
	out := fileShape{
		WeatherDataMap:      make(map[string][]json.RawMessage, len(snap.Buckets)),
		ServerTimestampMap:  make(map[string]int64, len(snap.Liveness)),
		MostRecentStationID: snap.MostRecentID,
		LatestPutTimestamp:  snap.LatestTimestamp,
		LamportTime:         lamport,
	}
	if !snap.MostRecentSet {
		out.MostRecentStationID = ""
	}

	for station, observations := range snap.Buckets {
		entries := make([]json.RawMessage, 0, len(observations))
		for _, obs := range observations {
			merged := map[string]interface{}{}
			if len(obs.Body) > 0 {
				if err := jsonAPI.Unmarshal(obs.Body, &merged); err != nil {
					return fileShape{}, err
				}
			}
			merged["timestamp"] = obs.Timestamp
			merged["ServerId"] = obs.Producer
			raw, err := jsonAPI.Marshal(merged)
			if err != nil {
				return fileShape{}, err
			}
			entries = append(entries, raw)
		}
		out.WeatherDataMap[station] = entries
	}

	for producer, at := range snap.Liveness {
		out.ServerTimestampMap[producer] = at.UnixNano() / int64(time.Millisecond)
	}

	return out, nil
}

// decode is encode's inverse: it splits each disk entry back into an
// Observation body (with "timestamp"/"ServerId" stripped back out) plus
// the timestamp/producer fields used to rebuild the bucket.
func decode(f fileShape) (model.Snapshot, uint64, error) {
	snap := model.Snapshot{
		Buckets:         make(map[string][]model.Observation, len(f.WeatherDataMap)),
		Liveness:        make(map[string]time.Time, len(f.ServerTimestampMap)),
		MostRecentSet:   f.MostRecentStationID != "",
		MostRecentID:    f.MostRecentStationID,
		LatestTimestamp: f.LatestPutTimestamp,
	}

	for station, entries := range f.WeatherDataMap {
		observations := make([]model.Observation, 0, len(entries))
		for _, raw := range entries {
			fields := map[string]interface{}{}
			if err := jsonAPI.Unmarshal(raw, &fields); err != nil {
				return model.Snapshot{}, 0, err
			}
			ts := uint64(0)
			if v, ok := fields["timestamp"]; ok {
				if f, ok := v.(float64); ok {
					ts = uint64(f)
				}
			}
			producer, _ := fields["ServerId"].(string)
			delete(fields, "timestamp")
			delete(fields, "ServerId")

			body, err := jsonAPI.Marshal(fields)
			if err != nil {
				return model.Snapshot{}, 0, err
			}

			observations = append(observations, model.Observation{
				StationID: station,
				Body:      body,
				Timestamp: ts,
				Producer:  producer,
			})
		}
		snap.Buckets[station] = observations
	}

	for producer, ms := range f.ServerTimestampMap {
		snap.Liveness[producer] = time.Unix(0, ms*int64(time.Millisecond))
	}

	return snap, f.LamportTime, nil
}
