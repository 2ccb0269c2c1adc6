package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrMalformedMessage = errors.New("chat message must be a JSON object")

const (
	EventChat    = "chat"
	EventBalance = "balance"
)

// Fields the server owns on every chat event. Client values for these keys
// are replaced.
const (
	fieldMessageID = "message_id"
	fieldSender    = "sender"
	fieldSenderID  = "sender_id"
)

type event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ChatMessage is one broadcast chat event. Fields holds whatever the sender
// supplied and is echoed verbatim.
type ChatMessage struct {
	ID       string
	SenderID string
	Sender   string
	Fields   map[string]json.RawMessage
}

func NewChatMessage(senderID, sender string, raw []byte) (ChatMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ChatMessage{}, ErrMalformedMessage
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ChatMessage{}, ErrMalformedMessage
	}
	return ChatMessage{SenderID: senderID, Sender: sender, Fields: fields}, nil
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+3)
	for key, value := range m.Fields {
		out[key] = value
	}
	out[fieldMessageID] = m.ID
	out[fieldSender] = m.Sender
	out[fieldSenderID] = m.SenderID
	return json.Marshal(out)
}

type BalanceUpdate struct {
	AccountID     string `json:"account_id"`
	Balance       int64  `json:"balance"`
	Formatted     string `json:"formatted"`
	TransactionID string `json:"transaction_id,omitempty"`
}
