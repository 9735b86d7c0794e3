package codec

// Wire response lines (spec §6). There is never a status line ahead of a
// GET success body — spec §9 codifies that explicitly, since one source
// revision of the original relied on it.
const (
	StatusOK            = "200 OK"
	StatusBadRequest    = "400 Bad Request"
	StatusNullServerID  = "400 Null ServerId"
	StatusNullStationID = "400 Null StationId"
	StatusJSONError     = "400 JSON Error"
	StatusDataNotFound  = "404 Data Not Found"
)
