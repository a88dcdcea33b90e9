package app

import (
	"context"
	"fmt"
	"time"

	"trivia-room-service/internal/domain"
)

// RoomStore abstracts how live rooms are indexed (in-memory, Redis-marked, etc).
// Implementations key rooms by their uppercase code and must be safe for concurrent use.
type RoomStore interface {
	// Insert adds the room unless its code is already taken.
	Insert(room *Room) bool
	Get(code string) (*Room, bool)
	// Delete removes the room and reports whether it was present.
	Delete(code string) bool
	Codes() []string
	Rooms() []*Room
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// Departure describes what a disconnect did to one room.
type Departure struct {
	Code string
	// Closed is true when the connection hosted the room and the room was removed.
	Closed bool
}

const defaultMaxCreateAttempts = 10

// RoomRegistry owns room creation, lookup, joining and removal.
type RoomRegistry struct {
	rooms       RoomStore
	questions   QuestionRepository
	setID       string
	codes       *CodeGenerator
	maxAttempts int
	now         func() time.Time
}

// RegistryOption customizes a RoomRegistry.
type RegistryOption func(*RoomRegistry)

// WithMaxCreateAttempts bounds how often CreateRoom retries after an insert collision.
func WithMaxCreateAttempts(n int) RegistryOption {
	return func(r *RoomRegistry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithCodeGenerator swaps the room code generator.
func WithCodeGenerator(g *CodeGenerator) RegistryOption {
	return func(r *RoomRegistry) { r.codes = g }
}

// WithClock sets the clock handed to new rooms.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *RoomRegistry) { r.now = now }
}

// NewRoomRegistry builds a registry whose rooms play the question set setID.
func NewRoomRegistry(store RoomStore, questions QuestionRepository, setID string, opts ...RegistryOption) *RoomRegistry {
	r := &RoomRegistry{
		rooms:       store,
		questions:   questions,
		setID:       setID,
		codes:       NewCodeGenerator(),
		maxAttempts: defaultMaxCreateAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom allocates a unique code and registers a room hosted by hostConnectionID.
func (r *RoomRegistry) CreateRoom(ctx context.Context, hostConnectionID string) (*Room, error) {
	set, err := r.questions.GetQuestionSet(ctx, r.setID)
	if err != nil {
		return nil, fmt.Errorf("load question set %q: %w", r.setID, err)
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		code := r.codes.Generate(r.rooms.Codes())
		room := NewRoomWithClock(code, hostConnectionID, set.Questions, r.now)
		if r.rooms.Insert(room) {
			return room, nil
		}
	}
	return nil, domain.ErrRoomCodeExhausted
}

// GetRoom looks a room up by code, ignoring case and surrounding space.
func (r *RoomRegistry) GetRoom(code string) (*Room, error) {
	room, ok := r.rooms.Get(NormalizeCode(code))
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// RemoveRoom drops the room; removing an unknown code is a no-op.
func (r *RoomRegistry) RemoveRoom(code string) bool {
	return r.rooms.Delete(NormalizeCode(code))
}

// JoinRoom adds connectionID to the room as a player named name.
func (r *RoomRegistry) JoinRoom(code, connectionID, name string) (*Room, error) {
	room, err := r.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if err := room.join(connectionID, name); err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveRoom detaches connectionID from every room. Rooms it hosts are removed.
func (r *RoomRegistry) LeaveRoom(connectionID string) []Departure {
	var departures []Departure
	for _, room := range r.rooms.Rooms() {
		if room.IsHost(connectionID) {
			if r.rooms.Delete(room.Code()) {
				departures = append(departures, Departure{Code: room.Code(), Closed: true})
			}
			continue
		}
		if room.removePlayer(connectionID) {
			departures = append(departures, Departure{Code: room.Code()})
		}
	}
	return departures
}

// Rooms returns a snapshot of live rooms.
func (r *RoomRegistry) Rooms() []*Room {
	return r.rooms.Rooms()
}
