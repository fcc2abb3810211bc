package protocol

import "encoding/json"

// Request is the envelope every inbound frame must carry.
type Request struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is sent back to the originating connection. Exactly one of
// Payload and Error is set; the other is encoded as null.
type Response struct {
	Event   string  `json:"event"`
	Payload *string `json:"payload"`
	Error   *string `json:"error"`
}

// NewErrorResponse creates an error response carrying kind as its error string.
func NewErrorResponse(event string, kind ErrorKind) *Response {
	errStr := string(kind)
	return &Response{Event: event, Error: &errStr}
}

// Marshal encodes the response as a JSON text frame.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
