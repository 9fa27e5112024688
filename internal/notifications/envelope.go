package notifications

import (
	"encoding/json"

	"skillswap/internal/models"
)

// Envelope is the frame pushed over the notification socket.
type Envelope struct {
	Type    string              `json:"type"`
	Payload models.Notification `json:"payload"`
}

// Encode wraps n in an Envelope and returns it as JSON text.
func Encode(n models.Notification) (string, error) {
	b, err := json.Marshal(Envelope{Type: "notification", Payload: n})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
