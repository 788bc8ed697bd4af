package semantic

import "errors"

var (
	// ErrEmptyVocabulary is returned when no token reaches MinCount.
	ErrEmptyVocabulary = errors.New("semantic: no token meets the minimum count")

	// ErrInvalidConfig is returned for out-of-range training parameters.
	ErrInvalidConfig = errors.New("semantic: invalid training config")

	// ErrDimensionMismatch is returned when vectors disagree in length.
	ErrDimensionMismatch = errors.New("semantic: vector dimension mismatch")

	// ErrDuplicateWord is returned when a word appears twice in a model.
	ErrDuplicateWord = errors.New("semantic: duplicate word")
)
