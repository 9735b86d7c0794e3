package aggregator

import (
	"errors"
	"time"

	"github.com/jabolina/weatherlink/internal/codec"
	"github.com/jabolina/weatherlink/internal/model"
)

// handlePut implements spec §4.5. The Lamport clock has already been
// observed by the caller (step 2 happens once per request body, ahead of
// method routing — see dispatcher.go) so this only covers steps 3-8.
func (a *Aggregator) handlePut(req codec.Request) string {
	producer := req.Header("ServerId")
	if producer == "" {
		return codec.StatusNullServerID
	}

	if _, err := a.state.Put(producer, req.LamportClock(), req.Body); err != nil {
		switch {
		case errors.Is(err, model.ErrMalformedBody):
			return codec.StatusJSONError
		case errors.Is(err, model.ErrMissingID):
			return codec.StatusNullStationID
		default:
			a.log.Errorf("unexpected PUT error: %v", err)
			return codec.StatusJSONError
		}
	}

	return codec.StatusOK
}

// handleGet implements spec §4.6 steps 2-5.
func (a *Aggregator) handleGet(req codec.Request) string {
	stationID := req.Header("StationId")
	obs, err := a.state.Get(stationID, req.LamportClock(), a.expiry)
	if err != nil {
		return codec.StatusDataNotFound
	}
	return string(obs.Body)
}

// defaultExpiry is the 30s soft-expiry window from spec §4.6.
const defaultExpiry = 30 * time.Second
