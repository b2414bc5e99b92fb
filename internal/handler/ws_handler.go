package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/middleware"
	"github.com/stemsi/testcenter/internal/repository"
	"github.com/stemsi/testcenter/internal/response"
	"github.com/stemsi/testcenter/internal/service"
	"github.com/stemsi/testcenter/internal/session"
	ws "github.com/stemsi/testcenter/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

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

// WSHandler streams the candidate's session and accepts session actions
// over a single WebSocket.
type WSHandler struct {
	svc      *service.TestCenterService
	events   *repository.EventBus
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. events may be nil, in which case
// only direct action replies are sent.
func NewWSHandler(svc *service.TestCenterService, events *repository.EventBus, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		svc:      svc,
		events:   events,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/candidate/session/stream
// Pushes session events (ticks, state changes, submit outcomes) and accepts
// answer, navigation, pause and submit actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().Str("candidate", cand.Key).Logger()
	wsLog.Info().Msg("Candidate connected")

	if h.events != nil {
		pubsub := h.events.Subscribe(ctx, cand.Key)
		defer pubsub.Close()
		go h.relay(ctx, conn, pubsub.Channel(), wsLog)
	}

	if snap, err := h.svc.Snapshot(cand.Key); err == nil {
		conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Snapshot: snap})
	}

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		h.dispatch(ctx, conn, cand.Key, &msg, wsLog)
	}
}

// relay forwards bus events to the socket and keeps the connection alive.
func (h *WSHandler) relay(ctx context.Context, conn *ws.Conn, ch <-chan *redis.Message, log zerolog.Logger) {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON directly, no re-encoding needed.
			if err := conn.WriteTyped(ws.StreamResponse{Event: ws.EventStream, Data: json.RawMessage(msg.Payload)}); err != nil {
				log.Debug().Err(err).Msg("Relay write failed")
				return
			}
		case <-keepAlive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, key string, msg *ws.RequestPayload, log zerolog.Logger) {
	var (
		snap session.Snapshot
		err  error
	)

	switch msg.Action {
	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		return

	case ws.ActionSubmit:
		res, snap, err := h.svc.Submit(ctx, key)
		if err != nil {
			h.writeError(conn, err)
			return
		}
		conn.WriteTyped(ws.SubmittedResponse{
			Event:      ws.EventSubmitted,
			Result:     res,
			ScoreLabel: res.ScoreLabel(),
			Snapshot:   snap,
		})
		return

	case ws.ActionAnswer:
		if msg.QuestionID == "" || msg.OptionIndex == nil {
			conn.WriteError(string(response.ErrValidation), "question_id and option_index are required")
			return
		}
		snap, err = h.svc.Answer(ctx, key, msg.QuestionID, *msg.OptionIndex)
	case ws.ActionNext:
		snap, err = h.svc.Next(key)
	case ws.ActionPrevious:
		snap, err = h.svc.Previous(key)
	case ws.ActionGoTo:
		if msg.Index == nil {
			conn.WriteError(string(response.ErrValidation), "index is required")
			return
		}
		snap, err = h.svc.GoTo(key, *msg.Index)
	case ws.ActionPause:
		snap, err = h.svc.Pause(key)
	case ws.ActionResume:
		snap, err = h.svc.Resume(key)

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		return
	}

	if err != nil {
		h.writeError(conn, err)
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Action: msg.Action, Snapshot: snap})
}

func (h *WSHandler) writeError(conn *ws.Conn, err error) {
	_, code := errorCode(err)
	msg := errorMessage(err)
	if msg == "" {
		msg = err.Error()
	}
	conn.WriteError(string(code), msg)
}
