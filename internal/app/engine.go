package app

import (
	"sort"
	"strings"

	"trivia-room-service/internal/domain"
)

// GameEngine runs the per-room question state machine. Each call holds the
// room lock for its whole duration; calls on different rooms never contend.
type GameEngine struct{}

// NewGameEngine returns the engine. It is stateless; all state lives in rooms.
func NewGameEngine() *GameEngine {
	return &GameEngine{}
}

// StartGame moves the room to its first question. Calling it again restarts at
// question one; scores are kept.
func (e *GameEngine) StartGame(room *Room) (domain.QuestionView, error) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if len(room.questions) == 0 {
		return domain.QuestionView{}, domain.ErrNoQuestions
	}
	room.currentIndex = 0
	room.ended = false
	e.beginQuestionLocked(room)
	return room.viewLocked(room.questions[0]), nil
}

// beginQuestionLocked opens the answer window and clears every player's answer.
func (e *GameEngine) beginQuestionLocked(room *Room) {
	room.questionStartedAt = room.now()
	room.questionActive = true
	for _, p := range room.players {
		p.HasAnsweredCurrentQuestion = false
		p.LastAnswerIndex = nil
	}
}

// SubmitAnswer records a player's choice for the active question. Scoring waits for the reveal.
func (e *GameEngine) SubmitAnswer(room *Room, connectionID string, answerIndex int) error {
	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.questionActive {
		return domain.ErrQuestionNotActive
	}
	question, ok := room.currentQuestionLocked()
	if !ok {
		return domain.ErrNoCurrentQuestion
	}
	player, ok := room.players[connectionID]
	if !ok {
		return domain.ErrPlayerNotInRoom
	}
	if player.HasAnsweredCurrentQuestion {
		return domain.ErrAlreadyAnswered
	}
	if answerIndex < 0 || answerIndex >= len(question.Choices) {
		return domain.ErrInvalidAnswer
	}

	idx := answerIndex
	player.LastAnswerIndex = &idx
	player.HasAnsweredCurrentQuestion = true
	return nil
}

// RevealAnswers closes the active question and scores it. Every correct player
// is scored with the time elapsed at reveal, not at their own submission.
// Revealing a closed question returns the same result without scoring again.
func (e *GameEngine) RevealAnswers(room *Room) (domain.RoundResult, error) {
	room.mu.Lock()
	defer room.mu.Unlock()

	question, ok := room.currentQuestionLocked()
	if !ok {
		return domain.RoundResult{}, domain.ErrNoCurrentQuestion
	}
	if !room.questionActive {
		return domain.RoundResult{CorrectIndex: question.CorrectIndex, Scoreboard: scoreboardLocked(room)}, nil
	}

	room.questionActive = false
	now := room.now()
	startedAt := room.questionStartedAt
	if startedAt.IsZero() {
		startedAt = now
	}
	elapsed := now.Sub(startedAt)

	for _, p := range room.players {
		if !p.HasAnsweredCurrentQuestion || p.LastAnswerIndex == nil {
			continue
		}
		p.Score += Points(question.TimeLimitSeconds, elapsed, *p.LastAnswerIndex == question.CorrectIndex)
	}
	return domain.RoundResult{CorrectIndex: question.CorrectIndex, Scoreboard: scoreboardLocked(room)}, nil
}

// NextQuestion advances to the following question, or ends the game with ErrGameEnded.
func (e *GameEngine) NextQuestion(room *Room) (domain.QuestionView, error) {
	room.mu.Lock()
	defer room.mu.Unlock()

	next := room.currentIndex + 1
	if next >= len(room.questions) {
		room.questionActive = false
		room.ended = true
		return domain.QuestionView{}, domain.ErrGameEnded
	}
	room.currentIndex = next
	e.beginQuestionLocked(room)
	return room.viewLocked(room.questions[next]), nil
}

// CurrentQuestion returns the question the room is on, if any.
func (e *GameEngine) CurrentQuestion(room *Room) (domain.QuestionView, error) {
	room.mu.Lock()
	defer room.mu.Unlock()
	q, ok := room.currentQuestionLocked()
	if !ok {
		return domain.QuestionView{}, domain.ErrNoCurrentQuestion
	}
	return room.viewLocked(q), nil
}

// Scoreboard returns players by score descending, then by uppercased name ascending.
func (e *GameEngine) Scoreboard(room *Room) []domain.ScoreboardEntry {
	room.mu.Lock()
	defer room.mu.Unlock()
	return scoreboardLocked(room)
}

// Summary describes the room for read-only consumers.
func (e *GameEngine) Summary(room *Room) domain.RoomSummary {
	room.mu.Lock()
	defer room.mu.Unlock()
	return domain.RoomSummary{
		Code:           room.code,
		Phase:          room.phaseLocked(),
		QuestionNumber: room.currentIndex + 1,
		TotalQuestions: len(room.questions),
		PlayerCount:    len(room.players),
		CreatedAt:      room.createdAt,
		Scoreboard:     scoreboardLocked(room),
	}
}

func scoreboardLocked(room *Room) []domain.ScoreboardEntry {
	entries := make([]domain.ScoreboardEntry, 0, len(room.players))
	for _, p := range room.players {
		var last *int
		if p.LastAnswerIndex != nil {
			v := *p.LastAnswerIndex
			last = &v
		}
		entries = append(entries, domain.ScoreboardEntry{
			Name:            p.Name,
			Score:           p.Score,
			Answered:        p.HasAnsweredCurrentQuestion,
			LastAnswerIndex: last,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToUpper(entries[i].Name) < strings.ToUpper(entries[j].Name)
	})
	return entries
}
