package models

import "encoding/json"

// Request is a client frame: an event name, a client-chosen id echoed on the ack,
// and the event's arguments.
type Request struct {
	Event string          `json:"event"`
	ID    int64           `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is a server frame. Acks use Event "ack" and carry the request ID;
// broadcasts leave ID empty.
type Envelope struct {
	Event string      `json:"event"`
	ID    int64       `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// AckEvent is the event name of every acknowledgment frame.
const AckEvent = "ack"
