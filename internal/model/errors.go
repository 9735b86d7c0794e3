package model

import "errors"

// Sentinel errors classifying the ClientFormatError / LookupMiss taxonomy
// from spec §7. Callers map these to wire responses with errors.Is.
var (
	// ErrMalformedBody is returned when a PUT body is not valid JSON.
	// Maps to "400 JSON Error".
	ErrMalformedBody = errors.New("observation body is not valid JSON")

	// ErrMissingID is returned when a PUT body has no (or an empty) "id"
	// field. Maps to "400 Null StationId".
	ErrMissingID = errors.New("observation body is missing station id")

	// ErrNotFound is returned by Get when no observation satisfies the
	// causal-visibility and liveness rules. Maps to "404 Data Not Found".
	ErrNotFound = errors.New("no matching observation")
)
