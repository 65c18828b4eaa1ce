package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/easygo/easygo-schools/internal/middleware"
	"github.com/easygo/easygo-schools/internal/repository"
	ws "github.com/easygo/easygo-schools/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type attendanceSubscriber interface {
	Subscribe(ctx context.Context, classID *int) *redis.PubSub
}

// WSHandler streams live attendance marks to staff dashboards.
type WSHandler struct {
	feed     attendanceSubscriber
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(feed attendanceSubscriber, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		feed:     feed,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttendanceStream godoc
// WS /ws/v1/attendance?school_class_id=&token=
// Relays attendance marks of one class, or of every class when
// school_class_id is omitted. Clients may send {"action":"ping"}.
func (h *WSHandler) AttendanceStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	classID, ok := queryID(c, "school_class_id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.feed.Subscribe(ctx, classID)
	defer sub.Close()

	wsLog := h.log.With().Int("admin_id", claims.UserID).Logger()
	if classID != nil {
		wsLog = wsLog.With().Int("school_class_id", *classID).Logger()
	}
	wsLog.Info().Msg("Attendance stream connected")

	ws.Prepare(conn)
	if err := ws.Send(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, SchoolClassID: classID}); err != nil {
		return
	}

	// The reader only answers pings; all writes happen on this goroutine.
	pings := make(chan struct{}, 1)
	go func() {
		defer cancel()
		for {
			action, err := ws.ReadAction(conn)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	events := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Attendance stream closed")
			return
		case <-ticker.C:
			if err := ws.Ping(conn); err != nil {
				return
			}
		case <-pings:
			if err := ws.Send(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, open := <-events:
			if !open {
				_ = ws.SendError(conn, "attendance feed closed")
				return
			}
			ev, err := repository.DecodeAttendanceEvent(msg.Payload)
			if err != nil {
				wsLog.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed attendance event")
				continue
			}
			if err := ws.Send(conn, ws.AttendanceResponse{Event: ws.EventAttendance, Data: ev}); err != nil {
				return
			}
		}
	}
}
