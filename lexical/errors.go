package lexical

import "errors"

var (
	// ErrEmptyCorpus is returned when Fit receives no documents.
	ErrEmptyCorpus = errors.New("lexical: empty corpus")

	// ErrEmptyVocabulary is returned when every document is empty.
	ErrEmptyVocabulary = errors.New("lexical: every document is empty")

	// ErrMisaligned is returned when model and rows disagree in shape.
	ErrMisaligned = errors.New("lexical: rows do not match model")
)
