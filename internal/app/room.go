package app

import (
	"strings"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

const maxNameLength = 24

// Room is one game session. Every mutable field is guarded by mu; the engine
// and the registry are the only writers.
type Room struct {
	code      string
	hostID    string
	questions []domain.QuizQuestion
	createdAt time.Time
	now       func() time.Time

	mu                sync.Mutex
	currentIndex      int
	questionStartedAt time.Time
	questionActive    bool
	ended             bool
	players           map[string]*domain.PlayerState
}

// NewRoom builds a room that has not started yet. The question slice is copied.
func NewRoom(code, hostConnectionID string, questions []domain.QuizQuestion) *Room {
	return NewRoomWithClock(code, hostConnectionID, questions, time.Now)
}

// NewRoomWithClock is NewRoom with an injectable clock for deterministic timing in tests.
func NewRoomWithClock(code, hostConnectionID string, questions []domain.QuizQuestion, now func() time.Time) *Room {
	qs := make([]domain.QuizQuestion, len(questions))
	copy(qs, questions)
	return &Room{
		code:         NormalizeCode(code),
		hostID:       hostConnectionID,
		questions:    qs,
		createdAt:    now(),
		now:          now,
		currentIndex: -1,
		players:      make(map[string]*domain.PlayerState),
	}
}

// Code returns the uppercase room code.
func (r *Room) Code() string { return r.code }

// HostConnectionID returns the connection that controls the room.
func (r *Room) HostConnectionID() string { return r.hostID }

// IsHost reports whether connectionID controls the room.
func (r *Room) IsHost(connectionID string) bool { return r.hostID == connectionID }

// QuestionCount returns the number of questions the room will play.
func (r *Room) QuestionCount() int { return len(r.questions) }

// CreatedAt returns when the room was built.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// HasPlayer reports whether connectionID has joined.
func (r *Room) HasPlayer(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[connectionID]
	return ok
}

// PlayerCount returns how many players have joined.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// join validates the name and inserts the player in one critical section, so two
// concurrent joins can never admit the same name.
func (r *Room) join(connectionID, name string) error {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 1 || n > maxNameLength {
		return domain.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[connectionID]; ok {
		return domain.ErrAlreadyJoined
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return domain.ErrNameTaken
		}
	}
	r.players[connectionID] = &domain.PlayerState{
		ConnectionID: connectionID,
		Name:         name,
	}
	return nil
}

// removePlayer drops the connection if present and reports whether it was.
func (r *Room) removePlayer(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[connectionID]; !ok {
		return false
	}
	delete(r.players, connectionID)
	return true
}

func (r *Room) currentQuestionLocked() (domain.QuizQuestion, bool) {
	if r.currentIndex < 0 || r.currentIndex >= len(r.questions) {
		return domain.QuizQuestion{}, false
	}
	return r.questions[r.currentIndex], true
}

func (r *Room) phaseLocked() domain.Phase {
	switch {
	case r.ended:
		return domain.PhaseEnded
	case r.currentIndex < 0:
		return domain.PhaseNotStarted
	case r.questionActive:
		return domain.PhaseQuestionActive
	default:
		return domain.PhaseQuestionClosed
	}
}

func (r *Room) viewLocked(q domain.QuizQuestion) domain.QuestionView {
	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)
	return domain.QuestionView{
		Text:             q.Text,
		Choices:          choices,
		TimeLimitSeconds: q.TimeLimitSeconds,
		QuestionNumber:   r.currentIndex + 1,
		TotalQuestions:   len(r.questions),
	}
}
