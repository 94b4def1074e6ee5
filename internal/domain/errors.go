package domain

import apperrors "adaptive-quiz-service/internal/errors"

var (
	// ErrRoomNotFound is returned when no room is stored under a code.
	ErrRoomNotFound = apperrors.New(apperrors.CodeNotFound, apperrors.WithMessagef("room not found"))
	// ErrRoomCodeTaken is returned by stores when a create races an existing code.
	ErrRoomCodeTaken = apperrors.New(apperrors.CodeConflict, apperrors.WithMessagef("room code already in use"))
	// ErrRoomCodesExhausted means no free code was found within the retry budget.
	ErrRoomCodesExhausted = apperrors.New(apperrors.CodeInternal, apperrors.WithMessagef("could not allocate a room code"))
	// ErrRoomCompleted rejects mutations of a room whose session was ended.
	ErrRoomCompleted = apperrors.New(apperrors.CodeInvalidState, apperrors.WithMessagef("room session has ended"))

	ErrSessionNotFound = apperrors.New(apperrors.CodeNotFound, apperrors.WithMessagef("quiz session not found"))
	// ErrSessionCompleted is returned for any write after finalization.
	ErrSessionCompleted = apperrors.New(apperrors.CodeInvalidState, apperrors.WithMessagef("quiz session already completed"))
	// ErrIncompleteSession rejects finalizing while some questions are unanswered.
	ErrIncompleteSession = apperrors.New(apperrors.CodeInvalidState, apperrors.WithMessagef("quiz session has unanswered questions"))
	ErrAlreadyAnswered   = apperrors.New(apperrors.CodeConflict, apperrors.WithMessagef("question already answered"))
	// ErrQuestionIndexOutOfRange indicates a response for a question the session does not have.
	ErrQuestionIndexOutOfRange = apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("question index out of range"))
	ErrInvalidQuestion         = apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("invalid question"))
	ErrInvalidDifficulty       = apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("invalid difficulty"))

	ErrUserNotFound = apperrors.New(apperrors.CodeNotFound, apperrors.WithMessagef("user not found"))
	// ErrEmailTaken is returned on signup with an email that is already registered.
	ErrEmailTaken         = apperrors.New(apperrors.CodeConflict, apperrors.WithMessagef("email already registered"))
	ErrInvalidCredentials = apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("invalid email or password"))
)
