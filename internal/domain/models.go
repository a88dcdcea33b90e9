package domain

import (
	"fmt"
	"time"
)

// QuizQuestion is an immutable multiple-choice question.
type QuizQuestion struct {
	Text             string   `json:"text" yaml:"text"`
	Choices          []string `json:"choices" yaml:"choices"`
	CorrectIndex     int      `json:"correctIndex" yaml:"correctIndex"`
	TimeLimitSeconds int      `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
}

// Validate checks the question is playable.
func (q QuizQuestion) Validate() error {
	if len(q.Choices) < 2 {
		return fmt.Errorf("question %q needs at least 2 choices", q.Text)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return fmt.Errorf("question %q has correct index %d out of range", q.Text, q.CorrectIndex)
	}
	if q.TimeLimitSeconds <= 0 {
		return fmt.Errorf("question %q has non-positive time limit", q.Text)
	}
	return nil
}

// QuestionSet is an ordered list of questions played in a room.
type QuestionSet struct {
	ID        string         `json:"id" yaml:"id"`
	Questions []QuizQuestion `json:"questions" yaml:"questions"`
}

// Validate reports the first unplayable question as an InvalidQuestionSet error.
func (s QuestionSet) Validate() error {
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return InvalidQuestionSet(fmt.Sprintf("set %q question %d: %v", s.ID, i+1, err))
		}
	}
	return nil
}

// PlayerState tracks one joined connection within a room.
type PlayerState struct {
	ConnectionID               string
	Name                       string
	Score                      int
	LastAnswerIndex            *int
	HasAnsweredCurrentQuestion bool
}

// ScoreboardEntry is a point-in-time view of a player.
type ScoreboardEntry struct {
	Name            string `json:"name"`
	Score           int    `json:"score"`
	Answered        bool   `json:"answered"`
	LastAnswerIndex *int   `json:"lastAnswerIndex"`
}

// QuestionView is what players see when a question starts; it never carries the answer.
type QuestionView struct {
	Text             string   `json:"text"`
	Choices          []string `json:"choices"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	QuestionNumber   int      `json:"questionNumber"`
	TotalQuestions   int      `json:"totalQuestions"`
}

// RoundResult is produced by a reveal.
type RoundResult struct {
	CorrectIndex int               `json:"correctIndex"`
	Scoreboard   []ScoreboardEntry `json:"scoreboard"`
}

// Phase is the game state of a room.
type Phase string

const (
	PhaseNotStarted     Phase = "notStarted"
	PhaseQuestionActive Phase = "questionActive"
	PhaseQuestionClosed Phase = "questionClosed"
	PhaseEnded          Phase = "ended"
)

// RoomSummary is a read-only description of a live room.
type RoomSummary struct {
	Code           string            `json:"code"`
	Phase          Phase             `json:"phase"`
	QuestionNumber int               `json:"questionNumber"`
	TotalQuestions int               `json:"totalQuestions"`
	PlayerCount    int               `json:"playerCount"`
	CreatedAt      time.Time         `json:"createdAt"`
	Scoreboard     []ScoreboardEntry `json:"scoreboard"`
}

// GameResult is emitted when a game finishes or its room is closed by the host.
type GameResult struct {
	RoomCode      string            `json:"roomCode"`
	QuestionCount int               `json:"questionCount"`
	Scoreboard    []ScoreboardEntry `json:"scoreboard"`
	EndedAt       time.Time         `json:"endedAt"`
}

// Event is a message pushed to one connection or to every member of a room.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types delivered to clients.
const (
	EventRoomCreated       = "roomCreated"
	EventJoinedRoom        = "joinedRoom"
	EventPlayerListUpdated = "playerListUpdated"
	EventQuestionStarted   = "questionStarted"
	EventAnswerAccepted    = "answerAccepted"
	EventRoundEnded        = "roundEnded"
	EventGameEnded         = "gameEnded"
	EventRoomClosed        = "roomClosed"
)
