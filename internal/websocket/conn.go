package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512

	// PongWait is how long a client may stay silent before it is dropped.
	PongWait = 60 * time.Second
	// PingPeriod must stay below PongWait so a healthy client always
	// answers before its read deadline passes.
	PingPeriod = PongWait * 9 / 10
)

// Prepare caps inbound frames and keeps the read deadline moving while
// the client answers control pings.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}

// Send writes one typed event.
func Send(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// SendError tells the client why the stream is ending.
func SendError(conn *websocket.Conn, msg string) error {
	return Send(conn, ErrorResponse{Event: EventError, Error: msg})
}

// Ping sends a control ping; the pong is handled by Prepare's handler.
func Ping(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadAction blocks for the next client message and returns its action.
// Any message counts as activity.
func ReadAction(conn *websocket.Conn) (Action, error) {
	var env RequestEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		return "", err
	}
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	return env.Action, nil
}
