// ABOUTME: Wire messages for the newline-delimited JSON tool protocol.
// ABOUTME: One request object per line in, one response object per line out.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/harperreed/ultratrainer/internal/tools"
)

// Request types.
const (
	TypeDiscover = "discover"
	TypeInvoke   = "invoke"
)

// DefaultMaxLineBytes bounds a single request line, terminator included.
const DefaultMaxLineBytes = 1 << 20

var errLineTooLong = errors.New("request line too long")

// Request is one inbound line. ID is echoed back verbatim.
type Request struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response answers an invoke request, or reports a malformed one.
type Response struct {
	ID json.RawMessage `json:"id,omitempty"`
	tools.Envelope
}

// MarshalJSON puts id ahead of the envelope fields. The embedded envelope
// has its own marshaller, which would otherwise drop id.
func (r Response) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(r.Envelope)
	if err != nil || len(r.ID) == 0 {
		return body, err
	}
	out := make([]byte, 0, len(body)+len(r.ID)+7)
	out = append(out, `{"id":`...)
	out = append(out, r.ID...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

// DiscoveryResponse answers a discover request.
type DiscoveryResponse struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Tools json.RawMessage `json:"tools"`
}

func malformed(id json.RawMessage, reason string) Response {
	return Response{ID: id, Envelope: tools.Failure(tools.MalformedRequest(reason))}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed up to its newline and reported as errLineTooLong so the
// stream stays aligned on message boundaries.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return nil, errLineTooLong
			}
			return trimEOL(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0 && !tooLong:
			return trimEOL(line), nil
		default:
			return nil, err
		}
	}
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}
