package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage     MessageType = "client_message"
	TypeAssistantResponse MessageType = "assistant_response"
	TypeErrorEvent        MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is one user chat turn sent over the websocket.
type ClientMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Persona        string      `json:"persona,omitempty"`
	Message        string      `json:"message"`
}

// AssistantResponse carries the reply for one turn.
type AssistantResponse struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Persona        string      `json:"persona"`
	Message        string      `json:"message"`
}

type ErrorEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Type != TypeClientMessage {
		return ClientMessage{}, ErrUnsupportedType
	}

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, err
	}
	if msg.Message == "" {
		return ClientMessage{}, errors.New("invalid client_message: empty message")
	}
	return msg, nil
}
