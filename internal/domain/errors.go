package domain

// ErrorKind classifies user-facing failures so clients can branch on them.
type ErrorKind string

const (
	KindRoomNotFound        ErrorKind = "RoomNotFound"
	KindInvalidName         ErrorKind = "InvalidName"
	KindNameTaken           ErrorKind = "NameTaken"
	KindAlreadyJoined       ErrorKind = "AlreadyJoined"
	KindNotHost             ErrorKind = "NotHost"
	KindNoQuestions         ErrorKind = "NoQuestions"
	KindQuestionNotActive   ErrorKind = "QuestionNotActive"
	KindNoCurrentQuestion   ErrorKind = "NoCurrentQuestion"
	KindPlayerNotInRoom     ErrorKind = "PlayerNotInRoom"
	KindAlreadyAnswered     ErrorKind = "AlreadyAnswered"
	KindInvalidAnswer       ErrorKind = "InvalidAnswer"
	KindGameEnded           ErrorKind = "GameEnded"
	KindRoomCodeExhausted   ErrorKind = "RoomCodeExhausted"
	KindQuestionSetNotFound ErrorKind = "QuestionSetNotFound"
	KindInvalidQuestionSet  ErrorKind = "InvalidQuestionSet"
)

// Error is an expected, recoverable game condition with a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind, so a per-action message still satisfies errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	// ErrRoomNotFound is returned when no live room has the given code.
	ErrRoomNotFound = &Error{Kind: KindRoomNotFound, Message: "Room not found"}
	// ErrInvalidName is returned when a trimmed player name is not 1-24 characters.
	ErrInvalidName = &Error{Kind: KindInvalidName, Message: "Name must be 1-24 characters"}
	// ErrNameTaken is returned when another player in the room already uses the name.
	ErrNameTaken = &Error{Kind: KindNameTaken, Message: "That name is already taken in this room"}
	// ErrAlreadyJoined is returned when the connection is already a player in the room.
	ErrAlreadyJoined = &Error{Kind: KindAlreadyJoined, Message: "Already joined this room"}
	// ErrNotHost is returned when a non-host connection calls a host-only action.
	ErrNotHost = &Error{Kind: KindNotHost, Message: "Only host can do that"}
	// ErrNoQuestions is returned when starting a room whose question list is empty.
	ErrNoQuestions = &Error{Kind: KindNoQuestions, Message: "No questions"}
	// ErrQuestionNotActive is returned for answers outside the active window.
	ErrQuestionNotActive = &Error{Kind: KindQuestionNotActive, Message: "Question is not active"}
	// ErrNoCurrentQuestion is returned when the room has not reached a question yet.
	ErrNoCurrentQuestion = &Error{Kind: KindNoCurrentQuestion, Message: "No current question"}
	// ErrPlayerNotInRoom is returned when the connection has not joined the room.
	ErrPlayerNotInRoom = &Error{Kind: KindPlayerNotInRoom, Message: "Player not in room"}
	// ErrAlreadyAnswered is returned for a second answer to the same question.
	ErrAlreadyAnswered = &Error{Kind: KindAlreadyAnswered, Message: "Already answered"}
	// ErrInvalidAnswer is returned when the answer index is outside the choices.
	ErrInvalidAnswer = &Error{Kind: KindInvalidAnswer, Message: "Invalid answer"}
	// ErrGameEnded signals there is no question after the last one.
	ErrGameEnded = &Error{Kind: KindGameEnded, Message: "Game has ended"}
	// ErrRoomCodeExhausted is returned when room creation kept colliding on insert.
	ErrRoomCodeExhausted = &Error{Kind: KindRoomCodeExhausted, Message: "Unable to allocate a room code"}
	// ErrQuestionSetNotFound indicates the question source has no set with that id.
	ErrQuestionSetNotFound = &Error{Kind: KindQuestionSetNotFound, Message: "question set not found"}
	// ErrInvalidQuestionSet indicates loaded question content failed validation.
	ErrInvalidQuestionSet = &Error{Kind: KindInvalidQuestionSet, Message: "invalid question set"}
)

// NotHost builds a NotHost error naming the refused action, e.g. "Only host can start".
func NotHost(action string) error {
	return &Error{Kind: KindNotHost, Message: "Only host can " + action}
}

// InvalidQuestionSet builds an InvalidQuestionSet error with detail.
func InvalidQuestionSet(detail string) error {
	return &Error{Kind: KindInvalidQuestionSet, Message: "invalid question set: " + detail}
}
