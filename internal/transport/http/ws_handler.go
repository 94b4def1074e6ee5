package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
)

// WSHandler streams room snapshots to dashboards and students, replacing polling.
type WSHandler struct {
	rooms    *app.RoomService
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewWSHandler(rooms *app.RoomService) *WSHandler {
	return &WSHandler{
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type progressPayload struct {
	CurrentQuestionIndex int     `json:"currentQuestionIndex"`
	Completed            bool    `json:"completed"`
	Score                float64 `json:"score"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	e := apperrors.Convert(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: e.Code, Message: e.Message}}
}

// ServeWS upgrades GET /ws/rooms/:code. With ?userId= the connection joins the
// room and may send "progress" messages; without it the connection only watches.
// Every room change is pushed as a "room" snapshot followed by its "leaderboard".
func (h *WSHandler) ServeWS(c *gin.Context) {
	code := c.Param("code")
	userID := c.Query("userId")
	ctx := c.Request.Context()
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"room": code, "user": userID})

	// Resolve the room before upgrading so unknown codes get a plain HTTP error.
	if _, err := h.rooms.GetRoom(ctx, code); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	if userID != "" {
		if _, err := h.rooms.JoinRoom(ctx, code, userID); err != nil {
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
	}

	updates, cancel, err := h.rooms.Subscribe(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case room, ok := <-updates:
				if !ok {
					return
				}
				for _, msg := range []outboundMessage[any]{
					{Type: "room", Payload: room},
					{Type: "leaderboard", Payload: domain.BuildLeaderboard(room, h.now())},
				} {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "progress":
			if userID == "" {
				reply(errorMessage(apperrors.InvalidArgument("connect with userId to report progress")))
				continue
			}
			var payload progressPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(errorMessage(apperrors.InvalidArgument("invalid progress payload")))
				continue
			}
			_, err := h.rooms.ReportProgress(ctx, code, userID, domain.Progress{
				CurrentQuestionIndex: payload.CurrentQuestionIndex,
				Completed:            payload.Completed,
				Score:                payload.Score,
			})
			if err != nil {
				reply(errorMessage(err))
			}
		default:
			reply(errorMessage(apperrors.InvalidArgument("unsupported message type %q", inbound.Type)))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
