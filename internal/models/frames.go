package models

import "encoding/json"

type FrameType string

const (
	FrameTypeSubscribe   FrameType = "subscribe"
	FrameTypeUnsubscribe FrameType = "unsubscribe"
	FrameTypePublish     FrameType = "publish"
	FrameTypeMessage     FrameType = "message"
	FrameTypeError       FrameType = "error"
)

// ClientFrame is sent from the client to the server over the live channel.
type ClientFrame struct {
	Type    FrameType       `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is pushed from the server to the client. Payload carries a
// topic-specific JSON body; for chat topics it is a ChatMessage.
type ServerFrame struct {
	Type    FrameType       `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}
