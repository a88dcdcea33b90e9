package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// WSHandler serves the game protocol over gorilla websocket connections.
type WSHandler struct {
	service  *app.GameService
	logger   *logrus.Logger
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

// WithRateLimit caps inbound messages per connection.
func WithRateLimit(perSecond float64, burst int) WSOption {
	return func(h *WSHandler) {
		h.limit = rate.Limit(perSecond)
		h.burst = burst
	}
}

// NewWSHandler builds a handler allowing 5 messages per second with a burst of 10 unless overridden.
func NewWSHandler(service *app.GameService, logger *logrus.Logger, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limit: rate.Limit(5),
		burst: 10,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type answerPayload struct {
	RoomCode    string `json:"roomCode"`
	AnswerIndex *int   `json:"answerIndex"`
}

// ackPayload is the reply to every inbound request.
type ackPayload struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	RoomCode  string `json:"roomCode,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

type outboundMessage[T any] struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Payload   T      `json:"payload"`
}

type connectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game service.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := h.logger.WithFields(logrus.Fields{"conn_id": connID, "remote": r.RemoteAddr})
	log.Info("websocket connected")

	ctx := r.Context()
	events, cancel := h.service.Connect(connID)
	defer cancel()
	defer h.service.Disconnect(context.Background(), connID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	// single writer: gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(forwardDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	enqueue(outboundMessage[any]{Type: "connected", Payload: connectedPayload{ConnectionID: connID}})

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			log.WithError(err).Info("websocket disconnected")
			break
		}
		if !limiter.Allow() {
			enqueue(outboundMessage[any]{Type: "result", RequestID: inbound.RequestID, Payload: ackPayload{Error: "rate limited"}})
			continue
		}
		ack := h.dispatch(ctx, connID, inbound)
		if !ack.OK && ack.ErrorCode == "" {
			log.WithField("type", inbound.Type).Debug(ack.Error)
		}
		enqueue(outboundMessage[any]{Type: "result", RequestID: inbound.RequestID, Payload: ack})
	}

	close(closeSignals)
	<-forwardDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, inbound inboundMessage) ackPayload {
	switch inbound.Type {
	case "createRoom":
		code, err := h.service.CreateRoom(ctx, connID)
		if err != nil {
			return h.failure(connID, err)
		}
		return ackPayload{OK: true, RoomCode: code}
	case "joinRoom":
		var p joinPayload
		if err := decode(inbound.Payload, &p); err != nil {
			return ackPayload{Error: "invalid joinRoom payload"}
		}
		if err := h.service.JoinRoom(ctx, p.RoomCode, connID, p.Name); err != nil {
			return h.failure(connID, err)
		}
		return ackPayload{OK: true, RoomCode: app.NormalizeCode(p.RoomCode)}
	case "startGame":
		return h.roomAction(ctx, connID, inbound, h.service.StartGame)
	case "submitAnswer":
		var p answerPayload
		if err := decode(inbound.Payload, &p); err != nil || p.AnswerIndex == nil {
			return ackPayload{Error: "invalid submitAnswer payload"}
		}
		if err := h.service.SubmitAnswer(ctx, p.RoomCode, connID, *p.AnswerIndex); err != nil {
			return h.failure(connID, err)
		}
		return ackPayload{OK: true}
	case "revealAnswers":
		return h.roomAction(ctx, connID, inbound, func(ctx context.Context, code, connID string) error {
			_, err := h.service.RevealAnswers(ctx, code, connID)
			return err
		})
	case "nextQuestion":
		var p roomPayload
		if err := decode(inbound.Payload, &p); err != nil {
			return ackPayload{Error: "invalid nextQuestion payload"}
		}
		done, err := h.service.NextQuestion(ctx, p.RoomCode, connID)
		if err != nil {
			return h.failure(connID, err)
		}
		return ackPayload{OK: true, Done: done}
	case "endRoom":
		return h.roomAction(ctx, connID, inbound, h.service.EndRoom)
	default:
		return ackPayload{Error: "unsupported message type"}
	}
}

func (h *WSHandler) roomAction(ctx context.Context, connID string, inbound inboundMessage, action func(ctx context.Context, code, connID string) error) ackPayload {
	var p roomPayload
	if err := decode(inbound.Payload, &p); err != nil {
		return ackPayload{Error: "invalid " + inbound.Type + " payload"}
	}
	if err := action(ctx, p.RoomCode, connID); err != nil {
		return h.failure(connID, err)
	}
	return ackPayload{OK: true}
}

// failure turns game errors into user-facing replies and hides everything else.
func (h *WSHandler) failure(connID string, err error) ackPayload {
	var gameErr *domain.Error
	if errors.As(err, &gameErr) {
		return ackPayload{Error: gameErr.Message, ErrorCode: string(gameErr.Kind)}
	}
	h.logger.WithField("conn_id", connID).WithError(err).Error("request failed")
	return ackPayload{Error: "internal error"}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}
