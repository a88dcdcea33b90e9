package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trivia-room-service/internal/domain"
)

// testClock is a manually advanced clock shared by a room under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func threeQuestions() []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{Text: "What year is it today?", Choices: []string{"2024", "2025", "2026", "2027"}, CorrectIndex: 2, TimeLimitSeconds: 15},
		{Text: "Which one is a fruit?", Choices: []string{"Carrot", "Apple", "Celery", "Potato"}, CorrectIndex: 1, TimeLimitSeconds: 12},
		{Text: "2 + 2 = ?", Choices: []string{"3", "4", "5", "22"}, CorrectIndex: 1, TimeLimitSeconds: 10},
	}
}

func setupRoom(t *testing.T, names ...string) (*Room, *GameEngine, *testClock) {
	t.Helper()
	clock := newTestClock()
	room := NewRoomWithClock("abcd", "host", threeQuestions(), clock.Now)
	for i, name := range names {
		require.NoError(t, room.join(fmt.Sprintf("p%d", i+1), name))
	}
	return room, NewGameEngine(), clock
}

func scoreOf(t *testing.T, room *Room, connectionID string) int {
	t.Helper()
	room.mu.Lock()
	defer room.mu.Unlock()
	p, ok := room.players[connectionID]
	require.True(t, ok, "player %s missing", connectionID)
	return p.Score
}

func TestStartGameWithoutQuestions(t *testing.T) {
	room := NewRoom("WXYZ", "host", nil)
	_, err := NewGameEngine().StartGame(room)
	assert.ErrorIs(t, err, domain.ErrNoQuestions)
	assert.Equal(t, domain.PhaseNotStarted, NewGameEngine().Summary(room).Phase)
}

func TestStartGameReturnsFirstQuestion(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")

	view, err := engine.StartGame(room)
	require.NoError(t, err)
	assert.Equal(t, "What year is it today?", view.Text)
	assert.Equal(t, 1, view.QuestionNumber)
	assert.Equal(t, 3, view.TotalQuestions)
	assert.Equal(t, 15, view.TimeLimitSeconds)
	assert.Equal(t, domain.PhaseQuestionActive, engine.Summary(room).Phase)
}

func TestBeginQuestionResetsAnswers(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann", "Bob")

	_, err := engine.StartGame(room)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitAnswer(room, "p1", 2))
	require.NoError(t, engine.SubmitAnswer(room, "p2", 0))
	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)

	_, err = engine.NextQuestion(room)
	require.NoError(t, err)

	room.mu.Lock()
	defer room.mu.Unlock()
	for id, p := range room.players {
		assert.False(t, p.HasAnsweredCurrentQuestion, "player %s still flagged", id)
		assert.Nil(t, p.LastAnswerIndex, "player %s kept last answer", id)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")

	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", 0), domain.ErrQuestionNotActive)

	_, err := engine.StartGame(room)
	require.NoError(t, err)

	assert.ErrorIs(t, engine.SubmitAnswer(room, "stranger", 0), domain.ErrPlayerNotInRoom)
	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", 4), domain.ErrInvalidAnswer)
	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", -1), domain.ErrInvalidAnswer)
}

func TestSecondAnswerRejectedAndIgnored(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)

	require.NoError(t, engine.SubmitAnswer(room, "p1", 1))
	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", 2), domain.ErrAlreadyAnswered)

	board := engine.Scoreboard(room)
	require.Len(t, board, 1)
	require.NotNil(t, board[0].LastAnswerIndex)
	assert.Equal(t, 1, *board[0].LastAnswerIndex)
	assert.True(t, board[0].Answered)
}

func TestRevealScoresCorrectAnswersOnce(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann", "Bob", "Cy")
	_, err := engine.StartGame(room)
	require.NoError(t, err)

	require.NoError(t, engine.SubmitAnswer(room, "p1", 2)) // correct
	require.NoError(t, engine.SubmitAnswer(room, "p2", 0)) // wrong
	// Cy does not answer

	first, err := engine.RevealAnswers(room)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CorrectIndex)
	assert.Equal(t, 650, scoreOf(t, room, "p1"))
	assert.Equal(t, 0, scoreOf(t, room, "p2"))
	assert.Equal(t, 0, scoreOf(t, room, "p3"))

	second, err := engine.RevealAnswers(room)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 650, scoreOf(t, room, "p1"))
	assert.Equal(t, domain.PhaseQuestionClosed, engine.Summary(room).Phase)
}

func TestRevealUsesElapsedTimeAtReveal(t *testing.T) {
	room, engine, clock := setupRoom(t, "Ann", "Bob")
	_, err := engine.StartGame(room)
	require.NoError(t, err)

	require.NoError(t, engine.SubmitAnswer(room, "p1", 2))
	clock.Advance(5 * time.Second)
	require.NoError(t, engine.SubmitAnswer(room, "p2", 2))
	clock.Advance(2 * time.Second)

	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)

	// 15s limit, 7s elapsed at reveal: 500 + 80 for both, regardless of when they answered.
	assert.Equal(t, 580, scoreOf(t, room, "p1"))
	assert.Equal(t, 580, scoreOf(t, room, "p2"))
}

func TestRevealAfterTimeLimitAwardsBaseOnly(t *testing.T) {
	room, engine, clock := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitAnswer(room, "p1", 2))
	clock.Advance(time.Minute)

	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)
	assert.Equal(t, BasePoints, scoreOf(t, room, "p1"))
}

func TestRevealWithoutQuestion(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.RevealAnswers(room)
	assert.ErrorIs(t, err, domain.ErrNoCurrentQuestion)
}

func TestSubmitAfterRevealRejected(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)
	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)

	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", 2), domain.ErrQuestionNotActive)
}

func TestNextQuestionThroughEnd(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)

	view, err := engine.NextQuestion(room)
	require.NoError(t, err)
	assert.Equal(t, 2, view.QuestionNumber)

	view, err = engine.NextQuestion(room)
	require.NoError(t, err)
	assert.Equal(t, 3, view.QuestionNumber)
	assert.Equal(t, "2 + 2 = ?", view.Text)

	_, err = engine.NextQuestion(room)
	assert.ErrorIs(t, err, domain.ErrGameEnded)
	assert.Equal(t, domain.PhaseEnded, engine.Summary(room).Phase)
	assert.ErrorIs(t, engine.SubmitAnswer(room, "p1", 1), domain.ErrQuestionNotActive)

	_, err = engine.NextQuestion(room)
	assert.ErrorIs(t, err, domain.ErrGameEnded)
}

func TestStartGameRestartsFromFirstQuestion(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitAnswer(room, "p1", 2))
	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)
	_, err = engine.NextQuestion(room)
	require.NoError(t, err)

	view, err := engine.StartGame(room)
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionNumber)
	assert.Equal(t, 650, scoreOf(t, room, "p1"), "restart keeps scores")
}

func TestScoreboardOrdering(t *testing.T) {
	room, engine, _ := setupRoom(t, "Zara", "bob", "Ann")
	room.mu.Lock()
	room.players["p3"].Score = 900
	room.players["p1"].Score = 650
	room.players["p2"].Score = 650
	room.mu.Unlock()

	board := engine.Scoreboard(room)
	require.Len(t, board, 3)
	assert.Equal(t, []string{"Ann", "bob", "Zara"}, []string{board[0].Name, board[1].Name, board[2].Name})
}

func TestScoreboardTieComparesUppercasedNames(t *testing.T) {
	// '_' sorts after letters once names are uppercased
	room, engine, _ := setupRoom(t, "_bob", "amy", "[x]")

	board := engine.Scoreboard(room)
	require.Len(t, board, 3)
	assert.Equal(t, []string{"amy", "[x]", "_bob"}, []string{board[0].Name, board[1].Name, board[2].Name})
}

func TestScoreboardIsASnapshot(t *testing.T) {
	room, engine, _ := setupRoom(t, "Ann")
	_, err := engine.StartGame(room)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitAnswer(room, "p1", 3))

	board := engine.Scoreboard(room)
	*board[0].LastAnswerIndex = 0
	board[0].Score = 1000

	again := engine.Scoreboard(room)
	assert.Equal(t, 3, *again[0].LastAnswerIndex)
	assert.Equal(t, 0, again[0].Score)
}

func TestConcurrentSubmissionsAndReveal(t *testing.T) {
	const players = 64
	names := make([]string, players)
	for i := range names {
		names[i] = fmt.Sprintf("player-%02d", i)
	}
	room, engine, _ := setupRoom(t, names...)
	_, err := engine.StartGame(room)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= players; i++ {
		wg.Add(1)
		go func(id string, answer int) {
			defer wg.Done()
			// every player tries twice; only the first may land
			_ = engine.SubmitAnswer(room, id, answer)
			_ = engine.SubmitAnswer(room, id, answer)
		}(fmt.Sprintf("p%d", i), i%4)
	}
	wg.Wait()

	_, err = engine.RevealAnswers(room)
	require.NoError(t, err)

	total := 0
	for _, entry := range engine.Scoreboard(room) {
		require.NotNil(t, entry.LastAnswerIndex)
		if *entry.LastAnswerIndex == 2 {
			assert.Equal(t, 650, entry.Score, entry.Name)
		} else {
			assert.Equal(t, 0, entry.Score, entry.Name)
		}
		total += entry.Score
	}
	assert.Equal(t, 16*650, total)
}
