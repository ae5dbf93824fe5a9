package websockets

import "encoding/json"

// Message is the wire envelope for every event in both directions. Data
// stays raw until the handler registered for the event decodes it into
// its typed payload, so a malformed payload fails validation in one
// place instead of crashing a handler.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
