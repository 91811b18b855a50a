package models

// Action captures a player's in-game move as received from the
// transport layer.
type Action struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}
