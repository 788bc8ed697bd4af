package build

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryRequired is returned when an artifact repository is not provided.
	ErrRepositoryRequired = errors.New("artifact repository required")

	// ErrEmptyTable is returned when the table holds no usable rows after normalization.
	ErrEmptyTable = errors.New("table has no usable rows")

	// ErrTableRequired is returned when Run is called without a table reader.
	ErrTableRequired = errors.New("table reader required")
)

// Stage names one step of the offline build.
type Stage string

const (
	StageLoad     Stage = "load"
	StageTokenize Stage = "tokenize"
	StageLexical  Stage = "lexical"
	StageSemantic Stage = "semantic"
	StagePersist  Stage = "persist"
)

// Stages lists every build stage in execution order.
var Stages = []Stage{StageLoad, StageTokenize, StageLexical, StageSemantic, StagePersist}

// StageError tags a build failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
