package comm

import (
	"encoding/json"
	"time"
)

// Message types sent over NATS and to WebSocket clients.
const (
	TypeTableChanged = "table-changed"
	TypeScoreboard   = "scoreboard"
	TypePlayerJoined = "player-joined"
	TypeToastDismiss = "toast-dismiss"
	TypeError        = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "scoreboard", "player-joined"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// TableChanged is published after every mutation of a table or its players.
type TableChanged struct {
	TableID string    `json:"table_id"`
	Origin  string    `json:"origin"` // instance id of the publishing service
	At      time.Time `json:"at"`
}

type ToastDismiss struct {
	ID string `json:"id"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// NewMessage marshals data into a WSMessage of the given type.
func NewMessage(msgType string, data interface{}, socketId string) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw, SocketId: socketId}, nil
}
