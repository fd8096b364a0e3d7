package models

// -----------------------------------------------------------------------------
// WebSocket push message
// -----------------------------------------------------------------------------

type MPushMessage struct {
	Type    string         `json:"type"` // "INITIAL", "UPDATE" or "ERROR"
	Payload *MChartPayload `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string `json:"command"`
	Page    string `json:"page"`
	Service string `json:"service"`
	Hours   int    `json:"hours"`
}

// MSubscription identifies a page render a client wants pushed.
type MSubscription struct {
	Page    string
	Service string
	Hours   int
}
