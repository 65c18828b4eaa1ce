package websocket

import "github.com/easygo/easygo-schools/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubscribed Event = "subscribed"
	EventAttendance Event = "attendance"
	EventPong       Event = "pong"
)

// SubscribedResponse confirms which class feed the connection follows.
// SchoolClassID is nil when the client follows every class.
type SubscribedResponse struct {
	Event         Event `json:"event"`
	SchoolClassID *int  `json:"school_class_id"`
}

// AttendanceResponse relays one attendance mark.
type AttendanceResponse struct {
	Event Event                 `json:"event"`
	Data  model.AttendanceEvent `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
