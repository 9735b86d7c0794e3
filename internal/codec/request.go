// Package codec implements the request/response wire format from spec
// §4.3/§4.4: a start line, case-sensitive "Key: value" header lines, a
// blank line, then a body of Content-Length bytes; and single-line
// responses with no header framing.
//
// It plays the role the teacher's RPCHeader/checkRPCHeader pairing played
// in pkg/mcast/protocol.go — a small, self-contained parse-and-validate
// step ahead of the real handler — generalized from a protocol-version
// check to a full HTTP-shaped start line and header parse.
package codec

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedRequest is returned when the raw bytes don't even contain a
// parseable start line.
var ErrMalformedRequest = errors.New("codec: malformed request")

// Request is the parsed shape of one wire request.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Header looks up a header by its exact, case-sensitive name.
func (r Request) Header(name string) string {
	return r.Headers[name]
}

// LamportClock parses the LamportClock header, defaulting to 0 if it is
// missing or malformed (spec §4.5 step 1 / §4.6 step 1).
func (r Request) LamportClock() uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(r.Header("LamportClock")), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Parse decodes raw bytes (as produced by transport.Connection.ReadRequest)
// into a Request. raw is expected to already contain exactly the framed
// body length the Content-Length header promised.
func Parse(raw []byte) (Request, error) {
	idx := bytes.Index(raw, []byte("\r\n"))
	if idx < 0 {
		return Request{}, ErrMalformedRequest
	}
	startLine := string(raw[:idx])
	rest := raw[idx+2:]

	fields := strings.Fields(startLine)
	if len(fields) < 2 {
		return Request{}, ErrMalformedRequest
	}

	headers := make(map[string]string)
	for {
		idx = bytes.Index(rest, []byte("\r\n"))
		if idx < 0 {
			rest = nil
			break
		}
		line := rest[:idx]
		rest = rest[idx+2:]
		if len(line) == 0 {
			break
		}
		if name, value, ok := splitHeader(string(line)); ok {
			headers[name] = value
		}
	}

	return Request{
		Method:  fields[0],
		Path:    fields[1],
		Headers: headers,
		Body:    rest,
	}, nil
}

// splitHeader splits a "Key: value" line, tolerating a single space after
// the colon (spec §4.3). Keys stay case-sensitive.
func splitHeader(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	name = line[:i]
	value = strings.TrimPrefix(line[i+1:], " ")
	return name, value, true
}
