package model

import "errors"

var (
	// ErrInvalidClass is returned for a class label outside the known levels.
	ErrInvalidClass = errors.New("invalid class level")
	// ErrInvalidTerm is returned for a term label outside the known terms.
	ErrInvalidTerm = errors.New("invalid term")
	// ErrInvalidDuration is returned when an exam duration is not positive.
	ErrInvalidDuration = errors.New("exam duration must be greater than zero")
	// ErrOptionCount is returned when an objective question does not carry exactly four options.
	ErrOptionCount = errors.New("objective question must have exactly 4 options")
	// ErrCorrectNotInOptions is returned when the correct answer is not one of the options.
	ErrCorrectNotInOptions = errors.New("correct answer must match one of the options")
	// ErrEmptyPrompt is returned for a question without text.
	ErrEmptyPrompt = errors.New("question prompt is required")
)
