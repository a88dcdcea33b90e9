package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"trivia-room-service/internal/domain"
)

// ResultRecorder receives final scoreboards (e.g. a Redis queue for a downstream historian).
type ResultRecorder interface {
	RecordResult(ctx context.Context, result domain.GameResult) error
}

// GameService is the boundary used by the transport layer. It normalizes room
// codes, enforces host-only actions, drives the engine and publishes events.
type GameService struct {
	registry *RoomRegistry
	engine   *GameEngine
	hub      *Hub
	results  ResultRecorder
	logger   *logrus.Logger
	now      func() time.Time
}

// ServiceOption customizes a GameService.
type ServiceOption func(*GameService)

// WithResultRecorder publishes a GameResult whenever a game or room ends.
func WithResultRecorder(rec ResultRecorder) ServiceOption {
	return func(s *GameService) { s.results = rec }
}

// WithLogger replaces the default logger.
func WithLogger(logger *logrus.Logger) ServiceOption {
	return func(s *GameService) { s.logger = logger }
}

// NewGameService wires the registry, engine and hub; results are not recorded unless WithResultRecorder is given.
func NewGameService(registry *RoomRegistry, engine *GameEngine, hub *Hub, opts ...ServiceOption) *GameService {
	s := &GameService{
		registry: registry,
		engine:   engine,
		hub:      hub,
		logger:   logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the event mailbox for a new connection.
func (s *GameService) Connect(connectionID string) (<-chan domain.Event, func()) {
	return s.hub.Subscribe(connectionID)
}

// CreateRoom registers a room hosted by connectionID and returns its code.
func (s *GameService) CreateRoom(ctx context.Context, connectionID string) (string, error) {
	room, err := s.registry.CreateRoom(ctx, connectionID)
	if err != nil {
		return "", err
	}
	s.hub.AddToGroup(room.Code(), connectionID)
	s.hub.Send(connectionID, domain.Event{Type: domain.EventRoomCreated, Payload: roomCodePayload{RoomCode: room.Code()}})

	s.roomLog(room.Code(), connectionID).Info("room created")
	return room.Code(), nil
}

// JoinRoom adds connectionID as a player and refreshes everyone's player list.
func (s *GameService) JoinRoom(_ context.Context, code, connectionID, name string) error {
	code = NormalizeCode(code)
	room, err := s.registry.JoinRoom(code, connectionID, name)
	if err != nil {
		return err
	}
	s.hub.AddToGroup(code, connectionID)
	// the host may have closed the room between the join and AddToGroup
	if current, err := s.registry.GetRoom(code); err != nil || current != room {
		s.hub.RemoveFromGroup(code, connectionID)
		return domain.ErrRoomNotFound
	}
	s.hub.Broadcast(code, domain.Event{Type: domain.EventPlayerListUpdated, Payload: s.engine.Scoreboard(room)})
	s.hub.Send(connectionID, domain.Event{Type: domain.EventJoinedRoom, Payload: roomCodePayload{RoomCode: code}})

	s.roomLog(code, connectionID).WithField("players", room.PlayerCount()).Debug("player joined")
	return nil
}

// StartGame begins the first question. Host only.
func (s *GameService) StartGame(_ context.Context, code, connectionID string) error {
	room, err := s.hostRoom(code, connectionID, "start")
	if err != nil {
		return err
	}
	question, err := s.engine.StartGame(room)
	if err != nil {
		return err
	}
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventQuestionStarted, Payload: question})

	s.roomLog(room.Code(), connectionID).WithField("question", question.QuestionNumber).Info("game started")
	return nil
}

// SubmitAnswer records connectionID's answer for the active question.
func (s *GameService) SubmitAnswer(_ context.Context, code, connectionID string, answerIndex int) error {
	room, err := s.registry.GetRoom(code)
	if err != nil {
		return err
	}
	if err := s.engine.SubmitAnswer(room, connectionID, answerIndex); err != nil {
		return err
	}
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventPlayerListUpdated, Payload: s.engine.Scoreboard(room)})
	s.hub.Send(connectionID, domain.Event{Type: domain.EventAnswerAccepted})
	return nil
}

// RevealAnswers closes the active question and broadcasts the round result. Host only.
func (s *GameService) RevealAnswers(_ context.Context, code, connectionID string) (domain.RoundResult, error) {
	room, err := s.hostRoom(code, connectionID, "reveal")
	if err != nil {
		return domain.RoundResult{}, err
	}
	result, err := s.engine.RevealAnswers(room)
	if err != nil {
		return domain.RoundResult{}, err
	}
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventRoundEnded, Payload: result})
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventPlayerListUpdated, Payload: result.Scoreboard})
	return result, nil
}

// NextQuestion advances the room. done is true when the game has just ended. Host only.
func (s *GameService) NextQuestion(ctx context.Context, code, connectionID string) (done bool, err error) {
	room, err := s.hostRoom(code, connectionID, "advance")
	if err != nil {
		return false, err
	}
	question, err := s.engine.NextQuestion(room)
	if errors.Is(err, domain.ErrGameEnded) {
		s.finish(ctx, room)
		s.roomLog(room.Code(), connectionID).Info("game ended")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventQuestionStarted, Payload: question})
	return false, nil
}

// EndRoom broadcasts the final scoreboard and removes the room. Host only.
func (s *GameService) EndRoom(ctx context.Context, code, connectionID string) error {
	room, err := s.hostRoom(code, connectionID, "end")
	if err != nil {
		return err
	}
	s.finish(ctx, room)
	s.registry.RemoveRoom(room.Code())
	s.hub.DropGroup(room.Code())

	s.roomLog(room.Code(), connectionID).Info("room ended by host")
	return nil
}

// Disconnect removes connectionID from every room it belongs to. Rooms it
// hosted are closed and their members notified.
func (s *GameService) Disconnect(_ context.Context, connectionID string) {
	for _, dep := range s.registry.LeaveRoom(connectionID) {
		if dep.Closed {
			s.hub.Broadcast(dep.Code, domain.Event{Type: domain.EventRoomClosed, Payload: roomCodePayload{RoomCode: dep.Code}})
			s.hub.DropGroup(dep.Code)
			s.roomLog(dep.Code, connectionID).Info("host left, room closed")
			continue
		}
		if room, err := s.registry.GetRoom(dep.Code); err == nil {
			s.hub.Broadcast(dep.Code, domain.Event{Type: domain.EventPlayerListUpdated, Payload: s.engine.Scoreboard(room)})
		}
		s.roomLog(dep.Code, connectionID).Debug("player left")
	}
}

// Room returns a read-only summary of a live room.
func (s *GameService) Room(code string) (domain.RoomSummary, error) {
	room, err := s.registry.GetRoom(code)
	if err != nil {
		return domain.RoomSummary{}, err
	}
	return s.engine.Summary(room), nil
}

func (s *GameService) hostRoom(code, connectionID, action string) (*Room, error) {
	room, err := s.registry.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(connectionID) {
		return nil, domain.NotHost(action)
	}
	return room, nil
}

// finish broadcasts the final scoreboard and hands it to the result recorder.
func (s *GameService) finish(ctx context.Context, room *Room) {
	scoreboard := s.engine.Scoreboard(room)
	s.hub.Broadcast(room.Code(), domain.Event{Type: domain.EventGameEnded, Payload: scoreboardPayload{Scoreboard: scoreboard}})

	if s.results == nil {
		return
	}
	result := domain.GameResult{
		RoomCode:      room.Code(),
		QuestionCount: room.QuestionCount(),
		Scoreboard:    scoreboard,
		EndedAt:       s.now(),
	}
	if err := s.results.RecordResult(ctx, result); err != nil {
		s.roomLog(room.Code(), "").WithError(err).Warn("record game result")
	}
}

func (s *GameService) roomLog(code, connectionID string) *logrus.Entry {
	fields := logrus.Fields{"room_code": code}
	if connectionID != "" {
		fields["conn_id"] = connectionID
	}
	return s.logger.WithFields(fields)
}

type roomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type scoreboardPayload struct {
	Scoreboard []domain.ScoreboardEntry `json:"scoreboard"`
}
