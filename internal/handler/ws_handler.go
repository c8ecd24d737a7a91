package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	ws "github.com/cursolab/campus-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	changeBufferSize  = 64
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

// WSHandler streams record changes to WebSocket clients.
type WSHandler struct {
	bus      events.Bus
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(bus events.Bus, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		bus:      bus,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Changes godoc
// WS /ws/v1/changes
// Pushes every published change as {"event":"change"}. Clients may send
// {"action":"ping"} and receive {"event":"pong"}.
func (h *WSHandler) Changes(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("remote", c.ClientIP()).Logger()

	// The bus may deliver on a publisher's goroutine, so never block it.
	changes := make(chan model.Change, changeBufferSize)
	unsubscribe := h.bus.Subscribe(func(change model.Change) {
		select {
		case changes <- change:
		default:
			wsLog.Warn().Str("entity", string(change.Entity)).Msg("Client too slow, change dropped")
		}
	})
	defer unsubscribe()

	wsLog.Info().Msg("Client subscribed to changes")

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.ReadWait))
	})

	// Only this goroutine writes; the reader hands replies over.
	replies := make(chan interface{}, 4)
	done := make(chan struct{})
	go h.readLoop(conn, wsLog, replies, done)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-done:
			return
		case change := <-changes:
			err = ws.WriteTyped(conn, ws.ChangeEvent{Event: ws.EventChange, Change: change})
		case reply := <-replies:
			err = ws.WriteTyped(conn, reply)
		case <-keepAlive.C:
			err = ws.WritePing(conn)
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing")
			return
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, log zerolog.Logger, replies chan<- interface{}, done chan<- struct{}) {
	defer close(done)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		var reply interface{}
		switch msg.Action {
		case ws.ActionPing:
			reply = ws.PongResponse{Event: ws.EventPong}
		default:
			log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			reply = ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}
		}

		select {
		case replies <- reply:
		default:
		}
	}
}
