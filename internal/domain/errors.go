package domain

import "errors"

var (
	// ErrNoQuestionsAvailable is returned when a paper or practice set has no questions to attempt.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrConfirmationDeclined is returned when the learner declines a destructive prompt.
	ErrConfirmationDeclined = errors.New("confirmation declined")
	// ErrStorageReadCorrupt marks persisted data that could not be decoded.
	ErrStorageReadCorrupt = errors.New("stored data is corrupt")
	// ErrNoActiveAttempt is returned when an operation needs an attempt and the slot is empty.
	ErrNoActiveAttempt = errors.New("no active attempt")
	// ErrAttemptFinished is returned when a running-only operation hits a finished attempt.
	ErrAttemptFinished = errors.New("attempt already finished")
	// ErrAttemptNotFinished is returned when review operations are used before finishing.
	ErrAttemptNotFinished = errors.New("attempt not finished")
	// ErrInvalidMode indicates an unknown paper mode.
	ErrInvalidMode = errors.New("invalid paper mode")
	// ErrYearNotFound indicates an unknown year key.
	ErrYearNotFound = errors.New("year not found")
	// ErrTopicNotFound indicates an unknown topic id.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrQuestionNotFound indicates a question key that is not part of the session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option label the question does not offer.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidResponse indicates a response whose kind does not fit the question.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrTopicsUnavailable is returned when not a single catalogue topic could be loaded.
	ErrTopicsUnavailable = errors.New("no topic could be loaded")
	// ErrNoPracticeSession is returned when practice operations run without a session.
	ErrNoPracticeSession = errors.New("no practice session")
)
