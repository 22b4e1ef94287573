package models

// -----------------------------------------------------------------------------
// Websocket push payload
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string                `json:"type"` // "INITIAL" or "UPDATE"
	Snapshots map[string]*MSnapshot `json:"snapshots"`
	Timestamp int64                 `json:"timestamp"`
	Metrics   MRefreshMetrics       `json:"metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}
